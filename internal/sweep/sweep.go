package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OfferSweeper re-runs the queue pass across all packages with waiters.
type OfferSweeper interface {
	Sweep(ctx context.Context) error
}

// ReminderSender dispatches departure reminders that are due.
type ReminderSender interface {
	SendUpcomingTripReminders(ctx context.Context) error
}

// Sweeper periodically expires stale offers, advances queues and sends trip
// reminders. It is the safety net for notification failures: anything missed
// is retried on the next pass.
type Sweeper struct {
	offers    OfferSweeper
	reminders ReminderSender
	interval  time.Duration
	logger    *zap.Logger
}

func New(offers OfferSweeper, reminders ReminderSender, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		offers:    offers,
		reminders: reminders,
		interval:  interval,
		logger:    logger,
	}
}

// Run executes one pass immediately, then one per interval until the context
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.pass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Sweeper) pass(ctx context.Context) {
	if err := s.offers.Sweep(ctx); err != nil {
		s.logger.Error("offer sweep failed", zap.Error(err))
	}
	if err := s.reminders.SendUpcomingTripReminders(ctx); err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
	}
}
