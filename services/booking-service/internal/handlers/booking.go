package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// BookingService is the engine surface the HTTP layer drives.
type BookingService interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ListSlots(ctx context.Context, serviceID string, date availability.Date) ([]availability.Slot, error)
	CreateBooking(ctx context.Context, req booking.CreateRequest) (model.Booking, error)
	CancelBooking(ctx context.Context, token string) (model.Booking, error)
	RescheduleBooking(ctx context.Context, token string, newStart time.Time) (model.Booking, error)
	SetStatus(ctx context.Context, bookingID string, status string) (model.Booking, error)
	SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error)
}

type BookingHandler struct {
	engine BookingService
	logger *slog.Logger
}

func NewBookingHandler(engine BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, logger: logger}
}

// Register mounts the public endpoints. writes wraps the state-changing ones
// (rate limiting); nil leaves them bare.
func (h *BookingHandler) Register(mux *http.ServeMux, writes httpx.Middleware) {
	if writes == nil {
		writes = func(next http.Handler) http.Handler { return next }
	}
	mux.HandleFunc("GET /api/v1/services", h.Services)
	mux.HandleFunc("GET /api/v1/slots", h.Slots)
	mux.Handle("POST /api/v1/book", writes(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/v1/cancel", writes(http.HandlerFunc(h.Cancel)))
	mux.Handle("POST /api/v1/cancel", writes(http.HandlerFunc(h.Cancel)))
	mux.Handle("POST /api/v1/reschedule", writes(http.HandlerFunc(h.Reschedule)))
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Request bodies accept the camelCase spellings older clients send
// (serviceId, newStart). The snake_case field wins when both are present.
type createBookingRequest struct {
	ServiceID string `json:"service_id" validate:"notblank,max=64"`
	Start     string `json:"start" validate:"notblank"`
	Name      string `json:"name" validate:"notblank,max=200"`
	Email     string `json:"email" validate:"notblank,max=320"`

	ServiceIDAlias string `json:"serviceId"`
}

func (r *createBookingRequest) applyAliases() {
	if strings.TrimSpace(r.ServiceID) == "" {
		r.ServiceID = r.ServiceIDAlias
	}
}

type bookingResponse struct {
	OK          bool   `json:"ok"`
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	CancelToken string `json:"cancel_token,omitempty"`
}

type rescheduleRequest struct {
	Token    string `json:"token" validate:"notblank,max=128"`
	NewStart string `json:"new_start" validate:"notblank"`

	NewStartAlias string `json:"newStart"`
}

func (r *rescheduleRequest) applyAliases() {
	if strings.TrimSpace(r.NewStart) == "" {
		r.NewStart = r.NewStartAlias
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseInstant(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toBookingResponse(b model.Booking, withToken bool) bookingResponse {
	resp := bookingResponse{
		OK:        true,
		BookingID: b.ID,
		Status:    string(b.Status),
		StartsAt:  formatTime(b.StartsAt),
		EndsAt:    formatTime(b.EndsAt),
	}
	if withToken {
		resp.CancelToken = b.CancelToken
	}
	return resp
}

func (h *BookingHandler) Services(w http.ResponseWriter, r *http.Request) {
	services, err := h.engine.ListServices(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceItem{ID: s.ID, Name: s.Name, DurationMinutes: s.DurationMinutes})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": items})
}

// Slots answers with an empty list when either parameter is missing.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if serviceID == "" {
		serviceID = strings.TrimSpace(q.Get("serviceId"))
	}
	rawDate := strings.TrimSpace(q.Get("date"))
	if serviceID == "" || rawDate == "" {
		writeJSON(w, http.StatusOK, map[string]any{"slots": []slotItem{}})
		return
	}
	date, err := availability.ParseDate(rawDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots, err := h.engine.ListSlots(r.Context(), serviceID, date)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{Start: formatTime(s.Start), End: formatTime(s.End)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeBody(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, ok := parseInstant(req.Start)
	if !ok {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}

	b, err := h.engine.CreateBooking(r.Context(), booking.CreateRequest{
		ServiceID: req.ServiceID,
		Start:     start,
		Name:      req.Name,
		Email:     req.Email,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("booking created",
		"booking_id", b.ID,
		"service_id", b.ServiceID,
		"request_id", httpx.RequestIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, toBookingResponse(b, true))
}

// Cancel serves the emailed link (GET) and API clients (POST). The token comes
// from the query string, or from a JSON body on POST.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" && r.Method == http.MethodPost && r.ContentLength != 0 {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = strings.TrimSpace(body.Token)
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	b, err := h.engine.CancelBooking(r.Context(), token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Booking cancelled"))
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, false))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeBody(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, ok := parseInstant(req.NewStart)
	if !ok {
		http.Error(w, "invalid new_start", http.StatusBadRequest)
		return
	}

	b, err := h.engine.RescheduleBooking(r.Context(), req.Token, start)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, false))
}
