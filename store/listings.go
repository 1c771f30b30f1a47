// Package store is the gorm-backed data access for listings and visits.
// It holds no business rules beyond the availability filter.
package store

import (
	"context"
	"fmt"
	"strings"

	"inmobot/models"

	"github.com/jinzhu/gorm"
)

// MaxResults caps every search returned to the dialogue.
const MaxResults = 10

// Filter is the structured listing filter. Zero values impose no constraint.
type Filter struct {
	Kinds       []string // any of (case-insensitive, exact)
	Operation   string   // sale or rent; "both" listings match either
	PriceMin    float64
	PriceMax    float64
	MinBedrooms int
	City        string   // case-insensitive substring
	Keywords    []string // each must be a substring of description, address, city, zone or kind
	Limit       int
}

// Listings is the listing table.
type Listings struct {
	db *gorm.DB
}

func NewListings(db *gorm.DB) *Listings {
	return &Listings{db: db}
}

// Search returns available listings matching f, ordered by price desc then reference asc.
func (s *Listings) Search(ctx context.Context, f Filter) ([]models.Listing, error) {
	q := s.available()
	q = applyFilter(q, f)

	limit := f.Limit
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	var out []models.Listing
	if err := q.Order("price desc").Order("reference asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: search listings: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// Candidates returns every available listing that matches f and has an embedding,
// unordered and uncapped; used for similarity ranking.
func (s *Listings) Candidates(ctx context.Context, f Filter) ([]models.Listing, error) {
	q := applyFilter(s.available(), f).
		Where("embedding IS NOT NULL AND embedding != ''")

	var out []models.Listing
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: load candidates: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// GetByReference does an exact, case-insensitive lookup regardless of status.
func (s *Listings) GetByReference(ctx context.Context, ref string) (*models.Listing, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.ErrNotFound
	}
	var l models.Listing
	err := s.db.Where("LOWER(reference) = ?", strings.ToLower(ref)).First(&l).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get listing %s: %v", models.ErrPersistence, ref, err)
	}
	return &l, nil
}

// CountAvailable returns how many listings are currently available.
func (s *Listings) CountAvailable(ctx context.Context) (int, error) {
	var n int
	if err := s.available().Model(&models.Listing{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count listings: %v", models.ErrPersistence, err)
	}
	return n, nil
}

// Deactivate marks a listing unavailable. Re-activation is not modeled, so an
// already unavailable listing is left untouched.
func (s *Listings) Deactivate(ctx context.Context, ref string) (*models.Listing, error) {
	l, err := s.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !l.Available() {
		return l, nil
	}
	res := s.db.Model(&models.Listing{}).
		Where("id = ? AND status = ?", l.ID, models.LISTING_STATUS_AVAILABLE).
		Update("status", models.LISTING_STATUS_UNAVAILABLE)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: deactivate %s: %v", models.ErrPersistence, ref, res.Error)
	}
	l.Status = models.LISTING_STATUS_UNAVAILABLE
	return l, nil
}

// Upsert inserts or replaces a listing by reference. Used by the importer only.
func (s *Listings) Upsert(ctx context.Context, l *models.Listing) error {
	existing, err := s.GetByReference(ctx, l.Reference)
	switch {
	case err == nil:
		l.ID = existing.ID
		l.CreatedAt = existing.CreatedAt
		l.Embedding = "" // conteúdo mudou, reindexa
		if !existing.Available() {
			l.Status = models.LISTING_STATUS_UNAVAILABLE
		}
		err = s.db.Save(l).Error
	case err == models.ErrNotFound:
		err = s.db.Create(l).Error
	default:
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", models.ErrPersistence, l.Reference, err)
	}
	return nil
}

// MissingEmbeddings returns up to limit available listings without an embedding
// and with id > afterID, in id order.
func (s *Listings) MissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]models.Listing, error) {
	var out []models.Listing
	err := s.available().
		Where("embedding IS NULL OR embedding = ''").
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: missing embeddings: %v", models.ErrPersistence, err)
	}
	return out, nil
}

// SetEmbedding stores the JSON-encoded embedding of a listing.
func (s *Listings) SetEmbedding(ctx context.Context, id int64, embedding string) error {
	err := s.db.Model(&models.Listing{}).Where("id = ?", id).
		UpdateColumn("embedding", embedding).Error
	if err != nil {
		return fmt.Errorf("%w: set embedding %d: %v", models.ErrPersistence, id, err)
	}
	return nil
}

// List pages through all listings (admin).
func (s *Listings) List(ctx context.Context, status string, limit, offset int) ([]models.Listing, error) {
	q := s.db.Model(&models.Listing{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Listing
	if err := q.Order("reference asc").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list listings: %v", models.ErrPersistence, err)
	}
	return out, nil
}

func (s *Listings) available() *gorm.DB {
	return s.db.Where("status = ?", models.LISTING_STATUS_AVAILABLE)
}

func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if len(f.Kinds) > 0 {
		kinds := make([]string, 0, len(f.Kinds))
		for _, k := range f.Kinds {
			kinds = append(kinds, strings.ToLower(strings.TrimSpace(k)))
		}
		q = q.Where("LOWER(kind) IN (?)", kinds)
	}
	switch f.Operation {
	case models.LISTING_OPERATION_SALE, models.LISTING_OPERATION_RENT:
		q = q.Where("operation IN (?)", []string{f.Operation, models.LISTING_OPERATION_BOTH})
	}
	if f.PriceMin > 0 {
		q = q.Where("price >= ?", f.PriceMin)
	}
	if f.PriceMax > 0 {
		q = q.Where("price <= ?", f.PriceMax)
	}
	if f.MinBedrooms > 0 {
		q = q.Where("bedrooms IS NOT NULL AND bedrooms >= ?", f.MinBedrooms)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		q = q.Where("LOWER(city) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(city))+"%")
	}
	for _, kw := range f.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		p := "%" + escapeLike(kw) + "%"
		q = q.Where("(LOWER(description) LIKE ? ESCAPE '!' OR LOWER(address) LIKE ? ESCAPE '!' OR LOWER(city) LIKE ? ESCAPE '!' OR LOWER(zone) LIKE ? ESCAPE '!' OR LOWER(kind) LIKE ? ESCAPE '!')",
			p, p, p, p, p)
	}
	return q
}

// likeEscaper makes % and _ in user text match literally. '!' is the escape character
// because a backslash literal is read differently by mysql and postgres.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
