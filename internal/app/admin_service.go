package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

type AdminRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreatePackage(ctx context.Context, pkg domain.Package) error
	ListPackages(ctx context.Context) ([]domain.Package, error)
	GetPackageForUpdate(ctx context.Context, packageID string) (domain.Package, error)
	UpdateCapacity(ctx context.Context, packageID string, capacity, available int) error
	SetVisibility(ctx context.Context, packageID string, visible bool) error
}

// AdminService covers the back-office operations that touch the engine:
// package creation, capacity changes and catalog visibility.
type AdminService struct {
	repo   AdminRepository
	queue  QueueAdvancer
	logger *zap.Logger
}

const maxDiscountDays = 7

func NewAdminService(repo AdminRepository, queue QueueAdvancer, logger *zap.Logger) *AdminService {
	return &AdminService{
		repo:   repo,
		queue:  queue,
		logger: logger,
	}
}

type CreatePackageInput struct {
	Destination    string
	Country        string
	StartsAt       time.Time
	EndsAt         time.Time
	BasePrice      decimal.Decimal
	DiscountPrice  *decimal.Decimal
	DiscountStart  *time.Time
	DiscountEnd    *time.Time
	Capacity       int
	LastBookingAt  *time.Time
	CancelDeadline *time.Time
}

func (s *AdminService) CreatePackage(ctx context.Context, in CreatePackageInput) (domain.Package, error) {
	if in.Destination == "" {
		return domain.Package{}, domain.ErrDestinationRequired
	}
	if in.Country == "" {
		return domain.Package{}, domain.ErrCountryRequired
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() || in.EndsAt.Before(in.StartsAt) {
		return domain.Package{}, domain.ErrInvalidDates
	}
	if in.Capacity <= 0 {
		return domain.Package{}, domain.ErrInvalidCapacity
	}
	if err := validateDiscount(in); err != nil {
		return domain.Package{}, err
	}

	pkg := domain.Package{
		ID:             newID(),
		Destination:    in.Destination,
		Country:        in.Country,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		BasePrice:      in.BasePrice,
		DiscountPrice:  in.DiscountPrice,
		DiscountStart:  in.DiscountStart,
		DiscountEnd:    in.DiscountEnd,
		Capacity:       in.Capacity,
		AvailableRooms: in.Capacity,
		Visible:        true,
		LastBookingAt:  in.LastBookingAt,
		CancelDeadline: in.CancelDeadline,
	}

	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

func (s *AdminService) ListPackages(ctx context.Context) ([]domain.Package, error) {
	return s.repo.ListPackages(ctx)
}

// SetCapacity changes a package's total capacity, applying the delta to
// availability. The new capacity must still cover rooms already booked. An
// increase frees rooms, so the queue is re-evaluated afterwards.
func (s *AdminService) SetCapacity(ctx context.Context, packageID string, capacity int) (domain.Package, error) {
	if packageID == "" {
		return domain.Package{}, domain.ErrInvalidID
	}
	if capacity <= 0 {
		return domain.Package{}, domain.ErrInvalidCapacity
	}

	var (
		result domain.Package
		delta  int
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		pkg, err := s.repo.GetPackageForUpdate(txCtx, packageID)
		if err != nil {
			return err
		}

		booked := pkg.Capacity - pkg.AvailableRooms
		if capacity < booked {
			return domain.ErrInvalidCapacity
		}

		delta = capacity - pkg.Capacity
		pkg.Capacity = capacity
		pkg.AvailableRooms += delta

		if err := s.repo.UpdateCapacity(txCtx, packageID, pkg.Capacity, pkg.AvailableRooms); err != nil {
			return err
		}
		result = pkg
		return nil
	})
	if err != nil {
		return domain.Package{}, err
	}

	if delta > 0 {
		if err := s.queue.Reevaluate(ctx, packageID); err != nil {
			s.logger.Error("re-evaluation after capacity increase failed",
				zap.String("package_id", packageID),
				zap.Error(err),
			)
		}
	}
	return result, nil
}

func (s *AdminService) SetVisibility(ctx context.Context, packageID string, visible bool) error {
	if packageID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SetVisibility(ctx, packageID, visible)
}

func validateDiscount(in CreatePackageInput) error {
	anySet := in.DiscountPrice != nil || in.DiscountStart != nil || in.DiscountEnd != nil
	if !anySet {
		return nil
	}
	if in.DiscountPrice == nil || in.DiscountStart == nil || in.DiscountEnd == nil {
		return domain.ErrInvalidDiscount
	}
	if in.DiscountPrice.GreaterThanOrEqual(in.BasePrice) {
		return domain.ErrInvalidDiscount
	}
	if in.DiscountEnd.Before(*in.DiscountStart) {
		return domain.ErrInvalidDiscount
	}
	if in.DiscountEnd.Sub(*in.DiscountStart) > maxDiscountDays*24*time.Hour {
		return domain.ErrInvalidDiscount
	}
	return nil
}
