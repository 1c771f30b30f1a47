package models

import (
	"encoding/json"
	"strings"
	"time"
)

/************************************************
/**** MARK: LISTING STATUS ****/
/************************************************/
const LISTING_STATUS_AVAILABLE = "available"
const LISTING_STATUS_UNAVAILABLE = "unavailable"

/************************************************
/**** MARK: LISTING OPERATION ****/
/************************************************/
const LISTING_OPERATION_SALE = "sale"
const LISTING_OPERATION_RENT = "rent"
const LISTING_OPERATION_BOTH = "both"
const LISTING_OPERATION_UNSPECIFIED = "unspecified"

// Listing representa um imóvel do catálogo.
//
// Campos opcionais: Bedrooms, Bathrooms e Area ficam nil quando a origem não informa
// (nenhum filtro casa com nil). Strings vazias significam "não informado".
// Price == 0 significa "consultar".
type Listing struct {
	ID             int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Reference      string     `gorm:"not null;unique_index" json:"reference"`
	Kind           string     `gorm:"not null;default:'';index" json:"kind"`
	Operation      string     `gorm:"not null;default:'unspecified'" json:"operation"`
	Price          float64    `gorm:"not null;default:0" json:"price"`
	Bedrooms       *int       `json:"bedrooms"`
	Bathrooms      *int       `json:"bathrooms"`
	Area           *float64   `json:"area"`
	Address        string     `gorm:"default:''" json:"address"`
	City           string     `gorm:"default:'';index" json:"city"`
	Department     string     `gorm:"default:''" json:"department"`
	Zone           string     `gorm:"default:''" json:"zone"`
	Description    string     `gorm:"type:text" json:"description"`
	Features       string     `gorm:"type:text" json:"-"` // JSON array (ex: ["Piscina","Ascensor"])
	Status         string     `gorm:"not null;default:'available';index" json:"status"`
	ListedAt       *time.Time `json:"listed_at"`
	Agent          string     `gorm:"default:'Sin asignar'" json:"agent"`
	Garages        int        `gorm:"not null;default:0" json:"garages"`
	CommonExpenses float64    `gorm:"not null;default:0" json:"common_expenses"`
	Featured       bool       `gorm:"not null;default:false" json:"featured"`
	Embedding      string     `gorm:"type:text" json:"-"` // JSON array de floats, preenchido pelo indexer
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// Tags decodes the ordered feature tags. Malformed or empty values yield nil.
func (l Listing) Tags() []string {
	s := strings.TrimSpace(l.Features)
	if s == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}

// SetTags encodes tags into Features.
func (l *Listing) SetTags(tags []string) {
	if len(tags) == 0 {
		l.Features = "[]"
		return
	}
	b, _ := json.Marshal(tags)
	l.Features = string(b)
}

func (l Listing) Available() bool {
	return l.Status == LISTING_STATUS_AVAILABLE
}

// MarshalJSON exposes the decoded tags instead of the raw column.
func (l Listing) MarshalJSON() ([]byte, error) {
	type alias Listing
	return json.Marshal(struct {
		alias
		Tags []string `json:"features"`
	}{alias: alias(l), Tags: l.Tags()})
}
