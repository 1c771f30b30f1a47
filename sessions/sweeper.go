package sessions

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically removes sessions idle for longer than Idle.
type Sweeper struct {
	store     Store
	idle      time.Duration
	interval  time.Duration
	scheduler *gocron.Scheduler
}

func NewSweeper(store Store, idle, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, idle: idle, interval: interval}
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.store.Sweep(ctx, s.idle)
	if err != nil {
		log.Printf("sessions: sweep error: %v", err)
		return n, err
	}
	if n > 0 {
		log.Printf("sessions: swept %d idle sessions (idle > %s)", n, s.idle)
	}
	return n, nil
}

// Start schedules RunOnce every interval until Stop.
func (s *Sweeper) Start() error {
	s.scheduler = gocron.NewScheduler(time.UTC)
	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
