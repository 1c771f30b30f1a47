// Package scheduler books visits to listings.
package scheduler

import (
	"context"
	"log"
	"strings"
	"time"

	"inmobot/models"
)

// VisitRequest is what the dialogue collected from the client.
type VisitRequest struct {
	ListingRef string
	ClientName string
	ClientID   string
	When       time.Time
	Notes      string
}

// Visits is the persistence the scheduler needs; store.Visits implements it.
type Visits interface {
	InsertForListing(ctx context.Context, ref string, v *models.Visit) (*models.Listing, error)
	Upcoming(ctx context.Context, clientID string, now time.Time) ([]models.Visit, error)
}

// Calendar mirrors a booked visit to an external agenda.
type Calendar interface {
	CreateEvent(ctx context.Context, v models.Visit, l models.Listing) error
}

type Scheduler struct {
	visits   Visits
	calendar Calendar
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Scheduler)

// WithCalendar enables best-effort mirroring, each call bounded by timeout.
func WithCalendar(c Calendar, timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.calendar = c
		s.timeout = timeout
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(visits Visits, opts ...Option) *Scheduler {
	s := &Scheduler{visits: visits, now: time.Now, timeout: 10 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateVisit validates req and inserts a pending visit, returning its id.
// Errors: models.ErrInvalidSchedule when When is not after now, models.ErrNotFound
// when the reference is not an available listing, models.ErrPersistence otherwise.
func (s *Scheduler) CreateVisit(ctx context.Context, req VisitRequest) (int64, error) {
	if strings.TrimSpace(req.ListingRef) == "" {
		return 0, models.ErrNotFound
	}
	if !req.When.After(s.now()) {
		return 0, models.ErrInvalidSchedule
	}

	v := &models.Visit{
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientID:    req.ClientID,
		ScheduledAt: req.When.UTC(),
		Status:      models.VISIT_STATUS_PENDING,
		Notes:       req.Notes,
	}
	l, err := s.visits.InsertForListing(ctx, req.ListingRef, v)
	if err != nil {
		return 0, err
	}
	log.Printf("scheduler: visit %d booked for %s at %s by %s", v.ID, v.ListingReference, v.ScheduledAt.Format(time.RFC3339), v.ClientID)

	s.mirror(ctx, *v, *l)
	return v.ID, nil
}

func (s *Scheduler) mirror(ctx context.Context, v models.Visit, l models.Listing) {
	if s.calendar == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.calendar.CreateEvent(cctx, v, l); err != nil {
		// a visita já está gravada; o calendário é só espelho
		log.Printf("scheduler: calendar mirror failed for visit %d: %v", v.ID, err)
	}
}

// ListUpcoming returns the client's visits still ahead, soonest first.
func (s *Scheduler) ListUpcoming(ctx context.Context, clientID string) ([]models.Visit, error) {
	return s.visits.Upcoming(ctx, clientID, s.now())
}
