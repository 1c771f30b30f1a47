package models

import "time"

// ManualChunk é um trecho (~500 palavras) do manual interno de gestão.
// Um documento é substituído inteiro a cada upload (unique(document, position)).
type ManualChunk struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Document  string     `gorm:"not null;index;unique_index:ux_manual_chunk" json:"document"`
	Position  int        `gorm:"not null;unique_index:ux_manual_chunk" json:"position"`
	Content   string     `gorm:"type:text" json:"content"`
	Embedding string     `gorm:"type:text" json:"-"` // JSON array (ex: [0.1,0.2,...])
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
