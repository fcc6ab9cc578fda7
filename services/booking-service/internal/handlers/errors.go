package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
)

// statusFor maps the engine's error taxonomy to an HTTP status and a message
// safe to show to clients.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrOutsideAvailability):
		return http.StatusUnprocessableEntity, "requested time is outside availability"
	case errors.Is(err, booking.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, booking.ErrConflict):
		return http.StatusConflict, "time slot already booked"
	case errors.Is(err, booking.ErrStore):
		return http.StatusServiceUnavailable, "store unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
	}
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	http.Error(w, msg, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
