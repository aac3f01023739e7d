package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/travel-waitlist/internal/app"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

// AdminPackageService is the minimal interface needed for the package
// creation and listing endpoints.
type AdminPackageService interface {
	CreatePackage(ctx context.Context, in app.CreatePackageInput) (domain.Package, error)
	ListPackages(ctx context.Context) ([]domain.Package, error)
}

// CapacitySetter is the minimal interface needed to change capacity.
type CapacitySetter interface {
	SetCapacity(ctx context.Context, packageID string, capacity int) (domain.Package, error)
}

// VisibilitySetter is the minimal interface needed to hide or show a package.
type VisibilitySetter interface {
	SetVisibility(ctx context.Context, packageID string, visible bool) error
}

// HandleAdminPackages returns an HTTP handler for package creation/listing.
func HandleAdminPackages(svc AdminPackageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			packages, err := svc.ListPackages(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]packageResponse, 0, len(packages))
			for _, pkg := range packages {
				resp = append(resp, toPackageResponse(pkg))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createPackageRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			pkg, err := svc.CreatePackage(r.Context(), app.CreatePackageInput{
				Destination:    req.Destination,
				Country:        req.Country,
				StartsAt:       req.StartsAt,
				EndsAt:         req.EndsAt,
				BasePrice:      req.BasePrice,
				DiscountPrice:  req.DiscountPrice,
				DiscountStart:  req.DiscountStart,
				DiscountEnd:    req.DiscountEnd,
				Capacity:       req.Capacity,
				LastBookingAt:  req.LastBookingAt,
				CancelDeadline: req.CancelDeadline,
			})
			if err != nil {
				switch err {
				case domain.ErrDestinationRequired:
					writeError(w, http.StatusBadRequest, codeDestinationRequired, err.Error())
				case domain.ErrCountryRequired:
					writeError(w, http.StatusBadRequest, codeCountryRequired, err.Error())
				case domain.ErrInvalidDates:
					writeError(w, http.StatusBadRequest, codeInvalidDates, err.Error())
				case domain.ErrInvalidDiscount:
					writeError(w, http.StatusBadRequest, codeInvalidDiscount, err.Error())
				case domain.ErrInvalidCapacity:
					writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toPackageResponse(pkg))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminPackageActions routes POST /admin/packages/{id}/capacity and
// POST /admin/packages/{id}/visibility.
func HandleAdminPackageActions(capacities CapacitySetter, visibilities VisibilitySetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID, action, ok := parseAdminPackagePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "capacity":
			var req setCapacityRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			pkg, err := capacities.SetCapacity(r.Context(), packageID, req.Capacity)
			if err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				case domain.ErrInvalidCapacity:
					writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
				case domain.ErrPackageNotFound:
					writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toPackageResponse(pkg))
		case "visibility":
			var req setVisibilityRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			if err := visibilities.SetVisibility(r.Context(), packageID, req.Visible); err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				case domain.ErrPackageNotFound:
					writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type createPackageRequest struct {
	Destination    string           `json:"destination"`
	Country        string           `json:"country"`
	StartsAt       time.Time        `json:"starts_at"`
	EndsAt         time.Time        `json:"ends_at"`
	BasePrice      decimal.Decimal  `json:"base_price"`
	DiscountPrice  *decimal.Decimal `json:"discount_price,omitempty"`
	DiscountStart  *time.Time       `json:"discount_start,omitempty"`
	DiscountEnd    *time.Time       `json:"discount_end,omitempty"`
	Capacity       int              `json:"capacity"`
	LastBookingAt  *time.Time       `json:"last_booking_at,omitempty"`
	CancelDeadline *time.Time       `json:"cancel_deadline,omitempty"`
}

type setCapacityRequest struct {
	Capacity int `json:"capacity"`
}

type setVisibilityRequest struct {
	Visible bool `json:"visible"`
}

type packageResponse struct {
	ID             string           `json:"id"`
	Destination    string           `json:"destination"`
	Country        string           `json:"country"`
	StartsAt       time.Time        `json:"starts_at"`
	EndsAt         time.Time        `json:"ends_at"`
	BasePrice      decimal.Decimal  `json:"base_price"`
	DiscountPrice  *decimal.Decimal `json:"discount_price,omitempty"`
	DiscountStart  *time.Time       `json:"discount_start,omitempty"`
	DiscountEnd    *time.Time       `json:"discount_end,omitempty"`
	Capacity       int              `json:"capacity"`
	AvailableRooms int              `json:"available_rooms"`
	Visible        bool             `json:"visible"`
	LastBookingAt  *time.Time       `json:"last_booking_at,omitempty"`
	CancelDeadline *time.Time       `json:"cancel_deadline,omitempty"`
}

func toPackageResponse(p domain.Package) packageResponse {
	return packageResponse{
		ID:             p.ID,
		Destination:    p.Destination,
		Country:        p.Country,
		StartsAt:       p.StartsAt,
		EndsAt:         p.EndsAt,
		BasePrice:      p.BasePrice,
		DiscountPrice:  p.DiscountPrice,
		DiscountStart:  p.DiscountStart,
		DiscountEnd:    p.DiscountEnd,
		Capacity:       p.Capacity,
		AvailableRooms: p.AvailableRooms,
		Visible:        p.Visible,
		LastBookingAt:  p.LastBookingAt,
		CancelDeadline: p.CancelDeadline,
	}
}

func parseAdminPackagePath(path string) (packageID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "packages" || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
