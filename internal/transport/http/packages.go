package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cimillas/travel-waitlist/internal/domain"
)

// QueueReevaluator is the minimal interface needed to force a queue pass.
type QueueReevaluator interface {
	Reevaluate(ctx context.Context, packageID string) error
}

// AvailabilityReader is the minimal interface needed to read the room count.
type AvailabilityReader interface {
	AvailableRooms(ctx context.Context, packageID string) (int, error)
}

// HandlePackageQueue routes POST /packages/{id}/reevaluate and
// GET /packages/{id}/availability.
func HandlePackageQueue(queue QueueReevaluator, inventory AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID, action, ok := parsePackagePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "reevaluate":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			if err := queue.Reevaluate(r.Context(), packageID); err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				case domain.ErrPackageNotFound:
					writeError(w, http.StatusNotFound, codePackageNotFound, err.Error())
				case domain.ErrConsistencyViolation:
					writeError(w, http.StatusInternalServerError, codeConsistencyViolation, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "availability":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			available, err := inventory.AvailableRooms(r.Context(), packageID)
			if err != nil {
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
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(availabilityResponse{AvailableRooms: available})
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type availabilityResponse struct {
	AvailableRooms int `json:"available_rooms"`
}

func parsePackagePath(path string) (packageID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "packages" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
