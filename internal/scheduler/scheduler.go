// Package scheduler fires notification dispatch on the half-hour grid.
// It polls a coarse ticker instead of sleeping until the next boundary,
// which keeps the loop correct across clock adjustments and suspend:
// at most one dispatch runs per slot, and a slot whose tick was missed
// entirely is skipped rather than delivered late.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher delivers notifications for one wall-clock slot.
// *service.NotifyService implements it.
type Dispatcher interface {
	DispatchDue(ctx context.Context, slot string) error
}

const tickInterval = 30 * time.Second

// Scheduler converts wall-clock time in a pinned zone into slot strings
// ("HH:00" or "HH:30") and invokes the dispatcher once per slot.
type Scheduler struct {
	dispatcher Dispatcher
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time

	lastSlot string
}

func New(dispatcher Dispatcher, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled. The slot reached at startup is
// treated as already handled so a restart mid-slot does not double-send.
func (s *Scheduler) Run(ctx context.Context) {
	s.lastSlot = s.currentSlot()
	s.logger.Info("scheduler started",
		slog.String("timezone", s.loc.String()),
		slog.String("slot", s.lastSlot),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick dispatches when the clock has crossed into a new slot since the
// last observation.
func (s *Scheduler) tick(ctx context.Context) {
	slot := s.currentSlot()
	if slot == s.lastSlot {
		return
	}
	s.lastSlot = slot

	if err := s.dispatcher.DispatchDue(ctx, slot); err != nil {
		s.logger.Error("slot dispatch failed",
			slog.String("slot", slot),
			slog.String("error", err.Error()),
		)
	}
}

// currentSlot truncates the pinned-zone wall clock down to the
// half-hour boundary.
func (s *Scheduler) currentSlot() string {
	t := s.now().In(s.loc)
	minute := 0
	if t.Minute() >= 30 {
		minute = 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, s.loc).Format("15:04")
}
