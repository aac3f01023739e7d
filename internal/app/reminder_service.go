package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

type ReminderRepository interface {
	ListUnremindedDepartures(ctx context.Context, from, until time.Time) ([]domain.UpcomingTrip, error)
	MarkReminderSent(ctx context.Context, bookingID string) error
}

// ReminderService sends one reminder per booking ahead of departure. The
// reminder flag is stamped only after a successful send, so failures retry
// naturally on the next sweep.
type ReminderService struct {
	repo     ReminderRepository
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
	lead     time.Duration
}

const DefaultReminderLead = 7 * 24 * time.Hour

func NewReminderService(repo ReminderRepository, notifier Notifier, clk clock.Clock, logger *zap.Logger, opts ...ReminderServiceOption) *ReminderService {
	svc := &ReminderService{
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		lead:     DefaultReminderLead,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReminderServiceOption func(*ReminderService)

// WithReminderLead overrides how far ahead of departure reminders go out.
func WithReminderLead(d time.Duration) ReminderServiceOption {
	return func(s *ReminderService) {
		if d > 0 {
			s.lead = d
		}
	}
}

// SendUpcomingTripReminders notifies bookings departing within the lead.
func (s *ReminderService) SendUpcomingTripReminders(ctx context.Context) error {
	now := s.clock.Now()

	trips, err := s.repo.ListUnremindedDepartures(ctx, now, now.Add(s.lead))
	if err != nil {
		return err
	}

	for _, trip := range trips {
		subject := fmt.Sprintf("Your trip to %s is coming up!", trip.Destination)
		body := fmt.Sprintf(
			"Hello,\n\nYour trip to %s, %s departs on %s. We look forward to seeing you!\n\nBest regards,\nTravel Agency Team\n",
			trip.Destination,
			trip.Country,
			trip.StartsAt.Format("Monday, 2 January 2006"),
		)

		if err := s.notifier.Notify(ctx, trip.Email, subject, body); err != nil {
			s.logger.Warn("trip reminder failed",
				zap.String("booking_id", trip.BookingID),
				zap.Error(err),
			)
			continue
		}
		if err := s.repo.MarkReminderSent(ctx, trip.BookingID); err != nil {
			s.logger.Error("mark reminder sent failed",
				zap.String("booking_id", trip.BookingID),
				zap.Error(err),
			)
		}
	}
	return nil
}
