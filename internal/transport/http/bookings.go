package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/travel-waitlist/internal/app"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

// BookingCreator is the minimal interface needed to create a booking.
type BookingCreator interface {
	Book(ctx context.Context, in app.BookInput) (domain.Booking, error)
}

// BookingCanceller is the minimal interface needed to cancel a booking.
type BookingCanceller interface {
	Cancel(ctx context.Context, bookingID string) error
}

// BookingPayer is the minimal interface needed to settle a booking.
type BookingPayer interface {
	Pay(ctx context.Context, bookingID string) (domain.Booking, error)
}

// HandleCreateBooking returns an HTTP handler for creating bookings.
func HandleCreateBooking(svc BookingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createBookingRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		booking, err := svc.Book(r.Context(), app.BookInput{
			PackageID: req.PackageID,
			UserID:    req.UserID,
			Email:     req.Email,
			Rooms:     req.Rooms,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrInvalidRooms:
				writeError(w, http.StatusBadRequest, codeInvalidRooms, err.Error())
			case domain.ErrPackageNotFound:
				writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
			case domain.ErrDuplicateBooking:
				writeError(w, http.StatusConflict, codeDuplicateBooking, err.Error())
			case domain.ErrBookingDeadlinePassed:
				writeError(w, http.StatusConflict, codeBookingDeadlinePassed, err.Error())
			case domain.ErrBookingLimitReached:
				writeError(w, http.StatusConflict, codeBookingLimitReached, err.Error())
			case domain.ErrInsufficientCapacity:
				writeError(w, http.StatusConflict, codeInsufficientCapacity, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
	}
}

// HandleBookingActions routes POST /bookings/{id}/cancel and
// POST /bookings/{id}/pay.
func HandleBookingActions(canceller BookingCanceller, payer BookingPayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, action, ok := parseBookingActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "cancel":
			if err := canceller.Cancel(r.Context(), bookingID); err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				case domain.ErrBookingNotFound:
					writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
				case domain.ErrCancellationDeadlinePassed:
					writeError(w, http.StatusConflict, codeCancellationDeadlinePassed, err.Error())
				case domain.ErrConsistencyViolation:
					writeError(w, http.StatusInternalServerError, codeConsistencyViolation, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "pay":
			booking, err := payer.Pay(r.Context(), bookingID)
			if err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				case domain.ErrBookingNotFound:
					writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
				case domain.ErrAlreadyPaid:
					writeError(w, http.StatusConflict, codeAlreadyPaid, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toBookingResponse(booking))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type createBookingRequest struct {
	PackageID string `json:"package_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Rooms     int    `json:"rooms"`
}

type bookingResponse struct {
	ID        string     `json:"id"`
	PackageID string     `json:"package_id"`
	UserID    string     `json:"user_id"`
	Rooms     int        `json:"rooms"`
	Paid      bool       `json:"paid"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		PackageID: b.PackageID,
		UserID:    b.UserID,
		Rooms:     b.Rooms,
		Paid:      b.Paid,
		PaidAt:    b.PaidAt,
		CreatedAt: b.CreatedAt,
	}
}

func parseBookingActionPath(path string) (bookingID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "bookings" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
