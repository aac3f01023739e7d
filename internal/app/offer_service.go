package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

type OfferRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error)
	ListEntries(ctx context.Context, packageID string) ([]domain.WaitlistEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	MarkOffered(ctx context.Context, entryID string, at time.Time) error
	ListQueuedPackageIDs(ctx context.Context) ([]string, error)
}

// OfferService decides, when capacity frees up, who is offered it and for
// how long. Offers are issued strictly one at a time in FIFO order; an
// unexpired offer blocks further advancement even when more rooms are free.
type OfferService struct {
	repo        OfferRepository
	notifier    Notifier
	clock       clock.Clock
	logger      *zap.Logger
	offerWindow time.Duration
}

const DefaultOfferWindow = 24 * time.Hour

func NewOfferService(repo OfferRepository, notifier Notifier, clk clock.Clock, logger *zap.Logger, opts ...OfferServiceOption) *OfferService {
	svc := &OfferService{
		repo:        repo,
		notifier:    notifier,
		clock:       clk,
		logger:      logger,
		offerWindow: DefaultOfferWindow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OfferServiceOption func(*OfferService)

// WithOfferWindow overrides the default 24h window an offeree has to book.
func WithOfferWindow(d time.Duration) OfferServiceOption {
	return func(s *OfferService) {
		if d > 0 {
			s.offerWindow = d
		}
	}
}

// OfferWindow returns the configured offer expiry window.
func (s *OfferService) OfferWindow() time.Duration {
	return s.offerWindow
}

type issuedOffer struct {
	entry domain.WaitlistEntry
	pkg   domain.Package
}

// Reevaluate runs one check-and-advance pass for a package: expired offers
// are removed (cascading to the next entrant in the same pass), and if rooms
// are free with no live offer outstanding, the earliest waiting entry is
// offered. The pass is idempotent: with no intervening state change it
// produces no transitions and no duplicate notifications.
func (s *OfferService) Reevaluate(ctx context.Context, packageID string) error {
	now := s.clock.Now()
	var issued *issuedOffer

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pkg, err := s.repo.GetPackageForUpdate(txCtx, packageID)
		if err != nil {
			return err
		}

		entries, err := s.repo.ListEntries(txCtx, packageID)
		if err != nil {
			return err
		}

		var head *domain.WaitlistEntry
		for i := range entries {
			if entries[i].State(now, s.offerWindow) == domain.EntryStateExpired {
				if err := s.repo.DeleteEntry(txCtx, entries[i].ID); err != nil {
					return err
				}
				continue
			}
			head = &entries[i]
			break
		}
		if head == nil {
			return nil
		}

		if head.State(now, s.offerWindow) == domain.EntryStateOffered {
			if pkg.AvailableRooms <= 0 {
				s.logger.Error("live offer with zero availability",
					zap.String("package_id", packageID),
					zap.String("entry_id", head.ID),
				)
				return domain.ErrConsistencyViolation
			}
			// Live offer outstanding: never advance to a second entrant.
			return nil
		}

		if pkg.AvailableRooms <= 0 {
			return nil
		}

		if err := s.repo.MarkOffered(txCtx, head.ID, now); err != nil {
			return err
		}
		issued = &issuedOffer{entry: *head, pkg: pkg}
		return nil
	})
	if err != nil {
		return err
	}

	// The offer is issued once recorded; notification failure does not roll
	// it back and is recovered only by a later booking or expiry.
	if issued != nil {
		s.notifyOffer(ctx, *issued)
	}
	return nil
}

// Sweep re-evaluates every package that has waitlist entries. It keeps going
// past per-package failures and reports them joined.
func (s *OfferService) Sweep(ctx context.Context) error {
	ids, err := s.repo.ListQueuedPackageIDs(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := s.Reevaluate(ctx, id); err != nil {
			s.logger.Error("sweep re-evaluation failed",
				zap.String("package_id", id),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *OfferService) notifyOffer(ctx context.Context, o issuedOffer) {
	subject := "A room is now available!"
	body := fmt.Sprintf(
		"Hello,\n\nGood news! A room is now available for the trip to %s, %s.\n\nPlease note: the room is reserved for you for the next %d hours.\n\nBest regards,\nTravel Agency Team\n",
		o.pkg.Destination,
		o.pkg.Country,
		int(s.offerWindow.Hours()),
	)

	if err := s.notifier.Notify(ctx, o.entry.Email, subject, body); err != nil {
		s.logger.Warn("offer notification failed",
			zap.String("package_id", o.pkg.ID),
			zap.String("entry_id", o.entry.ID),
			zap.Error(err),
		)
	}
}
