package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed           = "method_not_allowed"
	codeNotFound                   = "not_found"
	codeInvalidRequestBody         = "invalid_request_body"
	codeInvalidID                  = "invalid_id"
	codeDestinationRequired        = "destination_required"
	codeCountryRequired            = "country_required"
	codeInvalidDates               = "invalid_dates"
	codeInvalidDiscount            = "invalid_discount"
	codeInvalidCapacity            = "invalid_capacity"
	codeInvalidRooms               = "invalid_rooms"
	codePackageNotFound            = "package_not_found"
	codeBookingNotFound            = "booking_not_found"
	codeEntryNotFound              = "entry_not_found"
	codeRoomsAvailable             = "rooms_available"
	codeAlreadyQueued              = "already_queued"
	codeInsufficientCapacity       = "insufficient_capacity"
	codeDuplicateBooking           = "duplicate_booking"
	codeBookingDeadlinePassed      = "booking_deadline_passed"
	codeCancellationDeadlinePassed = "cancellation_deadline_passed"
	codeBookingLimitReached        = "booking_limit_reached"
	codeAlreadyPaid                = "already_paid"
	codeConsistencyViolation       = "consistency_violation"
	codeForbidden                  = "forbidden"
	codeInternalError              = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
