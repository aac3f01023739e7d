package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/clock"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

type WaitlistRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error)
	FindEntry(ctx context.Context, packageID, userID string) (*domain.WaitlistEntry, error)
	CreateEntry(ctx context.Context, entry domain.WaitlistEntry) (domain.WaitlistEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	CountEarlier(ctx context.Context, entry domain.WaitlistEntry) (int, error)
}

// WaitlistService manages the per-package FIFO queue of requesters waiting
// for a room to free up.
type WaitlistService struct {
	repo   WaitlistRepository
	queue  QueueAdvancer
	clock  clock.Clock
	logger *zap.Logger
}

// estimatedWaitPerPosition is the original system's display heuristic: two
// days per person ahead. It is an estimate shown to the requester, never a
// commitment the engine acts on.
const estimatedWaitPerPosition = 48 * time.Hour

func NewWaitlistService(repo WaitlistRepository, queue QueueAdvancer, clk clock.Clock, logger *zap.Logger) *WaitlistService {
	return &WaitlistService{
		repo:   repo,
		queue:  queue,
		clock:  clk,
		logger: logger,
	}
}

type JoinInput struct {
	PackageID string
	UserID    string
	Email     string
}

// Join appends the requester to the package's queue. Packages that still
// have rooms are rejected (the waitlist exists only for sold-out packages),
// as is a second active entry for the same (package, user) pair.
func (s *WaitlistService) Join(ctx context.Context, in JoinInput) (domain.WaitlistEntry, error) {
	if in.PackageID == "" || in.UserID == "" {
		return domain.WaitlistEntry{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.WaitlistEntry

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pkg, err := s.repo.GetPackageForUpdate(txCtx, in.PackageID)
		if err != nil {
			return err
		}
		if pkg.AvailableRooms > 0 {
			return domain.ErrRoomsAvailable
		}

		existing, err := s.repo.FindEntry(txCtx, in.PackageID, in.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyQueued
		}

		entry := domain.WaitlistEntry{
			ID:        newID(),
			PackageID: in.PackageID,
			UserID:    in.UserID,
			Email:     in.Email,
			CreatedAt: now,
		}

		result, err = s.repo.CreateEntry(txCtx, entry)
		return err
	})
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return result, nil
}

// Leave removes the requester's entry, whatever its state. Withdrawing the
// offeree frees the offer, so the queue is re-evaluated afterwards.
func (s *WaitlistService) Leave(ctx context.Context, packageID, userID string) error {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetPackageForUpdate(txCtx, packageID); err != nil {
			return err
		}
		entry, err := s.repo.FindEntry(txCtx, packageID, userID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrEntryNotFound
		}
		return s.repo.DeleteEntry(txCtx, entry.ID)
	})
	if err != nil {
		return err
	}

	if err := s.queue.Reevaluate(ctx, packageID); err != nil {
		s.logger.Error("re-evaluation after withdrawal failed",
			zap.String("package_id", packageID),
			zap.Error(err),
		)
	}
	return nil
}

type PositionResult struct {
	Position int
	// EstimatedAvailableAt is a display estimate only.
	EstimatedAvailableAt time.Time
}

// Position reports the requester's 1-based rank among active entries: the
// count of entries strictly earlier than theirs, plus one.
func (s *WaitlistService) Position(ctx context.Context, packageID, userID string) (PositionResult, error) {
	entry, err := s.repo.FindEntry(ctx, packageID, userID)
	if err != nil {
		return PositionResult{}, err
	}
	if entry == nil {
		return PositionResult{}, domain.ErrEntryNotFound
	}

	ahead, err := s.repo.CountEarlier(ctx, *entry)
	if err != nil {
		return PositionResult{}, err
	}

	position := ahead + 1
	return PositionResult{
		Position:             position,
		EstimatedAvailableAt: s.clock.Now().Add(time.Duration(position) * estimatedWaitPerPosition),
	}, nil
}
