package models

import "time"

/************************************************
/**** MARK: EVENT STATUS ****/
/************************************************/
const EVENT_STATUS_PENDING = "pending"
const EVENT_STATUS_PROCESSING = "processing"
const EVENT_STATUS_DONE = "done"
const EVENT_STATUS_IGNORED = "ignored"
const EVENT_STATUS_FAILED = "failed"

/************************************************
/**** MARK: EVENT CHANNEL ****/
/************************************************/
const EVENT_CHANNEL_WHATSAPP = "whatsapp"
const EVENT_CHANNEL_WEB = "web"

// Event representa uma mensagem recebida por um canal.
// Entra como "pending" e o worker entrega ao motor de diálogo na ordem de chegada
// (id crescente) de cada remetente.
type Event struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Recipient   string     `gorm:"not null;index" json:"recipient"` // remetente (from); a resposta volta para ele
	MessageID   string     `gorm:"default:'';index" json:"message_id"`
	Channel     string     `gorm:"not null;default:'whatsapp'" json:"channel"`
	IsGroup     bool       `gorm:"not null;default:false" json:"is_group"`
	Text        string     `gorm:"type:text" json:"text"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	ReplyText   string     `gorm:"type:text" json:"reply_text"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
