package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inmobot/models"

	"github.com/jinzhu/gorm"
)

// Visits is the visit table.
type Visits struct {
	db *gorm.DB
}

func NewVisits(db *gorm.DB) *Visits {
	return &Visits{db: db}
}

// InsertForListing resolves ref to an available listing and inserts v for it in the
// same transaction, so a listing deactivated concurrently never gets a new visit.
// It fills v.ListingID, v.ListingReference and v.ID and returns the listing.
func (s *Visits) InsertForListing(ctx context.Context, ref string, v *models.Visit) (*models.Listing, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: begin: %v", models.ErrPersistence, tx.Error)
	}

	var l models.Listing
	err := tx.Where("LOWER(reference) = ? AND status = ?",
		strings.ToLower(strings.TrimSpace(ref)), models.LISTING_STATUS_AVAILABLE).
		First(&l).Error
	if gorm.IsRecordNotFoundError(err) {
		tx.Rollback()
		return nil, models.ErrNotFound
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: lookup listing %s: %v", models.ErrPersistence, ref, err)
	}

	v.ListingID = l.ID
	v.ListingReference = l.Reference
	if v.Status == "" {
		v.Status = models.VISIT_STATUS_PENDING
	}
	if err := tx.Create(v).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: insert visit: %v", models.ErrPersistence, err)
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: commit visit: %v", models.ErrPersistence, err)
	}
	return &l, nil
}

// Upcoming returns the client's visits scheduled after now, soonest first.
func (s *Visits) Upcoming(ctx context.Context, clientID string, now time.Time) ([]models.Visit, error) {
	var out []models.Visit
	err := s.db.Where("client_id = ? AND scheduled_at > ? AND status != ?",
		clientID, now, models.VISIT_STATUS_CANCELLED).
		Order("scheduled_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: upcoming visits: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// VisitQuery filters the admin listing of visits.
type VisitQuery struct {
	ListingReference string
	ClientID         string
	Status           string
	From, To         *time.Time
	Limit            int
}

// List returns visits for the admin API, most recent schedule first.
func (s *Visits) List(ctx context.Context, q VisitQuery) ([]models.Visit, error) {
	db := s.db.Model(&models.Visit{})
	if q.ListingReference != "" {
		db = db.Where("LOWER(listing_reference) = ?", strings.ToLower(q.ListingReference))
	}
	if q.ClientID != "" {
		db = db.Where("client_id = ?", q.ClientID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.From != nil {
		db = db.Where("scheduled_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("scheduled_at < ?", *q.To)
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var out []models.Visit
	if err := db.Order("scheduled_at desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list visits: %v", models.ErrPersistence, err)
	}
	return out, nil
}
