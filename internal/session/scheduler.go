package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps cron-based background jobs.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleInterval registers a periodic job every given duration.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// AutoRefresh schedules a periodic token refresh on sched. A no-op while
// signed out; a rejected refresh token signs the guard out (listeners see
// the transition), so failures here are only logged.
func (g *Guard) AutoRefresh(sched *Scheduler, interval time.Duration) error {
	_, err := sched.ScheduleInterval(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := g.Refresh(ctx); err != nil {
			log.Printf("session: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	return nil
}
