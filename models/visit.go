package models

import "time"

/************************************************
/**** MARK: VISIT STATUS ****/
/************************************************/
const VISIT_STATUS_PENDING = "pending"
const VISIT_STATUS_CONFIRMED = "confirmed"
const VISIT_STATUS_CANCELLED = "cancelled"

// Visit é uma visita agendada a um imóvel. O core só cria visitas (status pending);
// mudanças de status acontecem fora do bot.
type Visit struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ListingID        int64      `gorm:"not null;index" json:"listing_id"`
	ListingReference string     `gorm:"not null;index" json:"listing_reference"`
	ClientName       string     `gorm:"not null" json:"client_name"`
	ClientID         string     `gorm:"not null;index" json:"client_id"` // endereço no canal (ex: telefone)
	ScheduledAt      time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Status           string     `gorm:"not null;default:'pending'" json:"status"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}
