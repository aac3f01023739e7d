package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/travel-waitlist/internal/app"
	"github.com/cimillas/travel-waitlist/internal/domain"
)

// WaitlistJoiner is the minimal interface needed to join a waiting queue.
type WaitlistJoiner interface {
	Join(ctx context.Context, in app.JoinInput) (domain.WaitlistEntry, error)
}

// WaitlistLeaver is the minimal interface needed to withdraw from a queue.
type WaitlistLeaver interface {
	Leave(ctx context.Context, packageID, userID string) error
}

// PositionReader is the minimal interface needed to report a queue position.
type PositionReader interface {
	Position(ctx context.Context, packageID, userID string) (app.PositionResult, error)
}

// HandleJoinWaitlist returns an HTTP handler for joining a package's queue.
func HandleJoinWaitlist(svc WaitlistJoiner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req joinRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		entry, err := svc.Join(r.Context(), app.JoinInput{
			PackageID: req.PackageID,
			UserID:    req.UserID,
			Email:     req.Email,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrPackageNotFound:
				writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
			case domain.ErrRoomsAvailable:
				writeError(w, http.StatusConflict, codeRoomsAvailable, err.Error())
			case domain.ErrAlreadyQueued:
				writeError(w, http.StatusConflict, codeAlreadyQueued, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := entryResponse{
			ID:        entry.ID,
			PackageID: entry.PackageID,
			UserID:    entry.UserID,
			CreatedAt: entry.CreatedAt,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleLeaveWaitlist returns an HTTP handler for withdrawing from a queue.
func HandleLeaveWaitlist(svc WaitlistLeaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req leaveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.PackageID == "" || req.UserID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		if err := svc.Leave(r.Context(), req.PackageID, req.UserID); err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrEntryNotFound:
				writeError(w, http.StatusNotFound, codeEntryNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleWaitlistPosition returns an HTTP handler for the queue position query.
func HandleWaitlistPosition(svc PositionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		packageID := r.URL.Query().Get("package_id")
		userID := r.URL.Query().Get("user_id")
		if packageID == "" || userID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		pos, err := svc.Position(r.Context(), packageID, userID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrEntryNotFound:
				writeError(w, http.StatusNotFound, codeEntryNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := positionResponse{
			Position:             pos.Position,
			EstimatedAvailableAt: pos.EstimatedAvailableAt,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type joinRequest struct {
	PackageID string `json:"package_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

type leaveRequest struct {
	PackageID string `json:"package_id"`
	UserID    string `json:"user_id"`
}

type entryResponse struct {
	ID        string    `json:"id"`
	PackageID string    `json:"package_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type positionResponse struct {
	Position             int       `json:"position"`
	EstimatedAvailableAt time.Time `json:"estimated_available_at"`
}
