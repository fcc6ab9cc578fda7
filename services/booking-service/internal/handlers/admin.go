package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth checks the staff token. A bcrypt hash takes precedence over the
// plain development token; with neither set every request is refused.
type AdminAuth struct {
	hash  []byte
	plain string
}

func NewAdminAuth(hash, plain string) AdminAuth {
	return AdminAuth{hash: []byte(strings.TrimSpace(hash)), plain: strings.TrimSpace(plain)}
}

func (a AdminAuth) Enabled() bool {
	return len(a.hash) > 0 || a.plain != ""
}

func (a AdminAuth) Valid(token string) bool {
	if token == "" {
		return false
	}
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(token)) == nil
	}
	if a.plain != "" {
		return subtle.ConstantTimeCompare([]byte(a.plain), []byte(token)) == 1
	}
	return false
}

func RequireAdmin(auth AdminAuth, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Valid(strings.TrimSpace(r.Header.Get(adminTokenHeader))) {
				logger.Warn("admin auth rejected", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type AdminHandler struct {
	engine BookingService
	logger *slog.Logger
}

func NewAdminHandler(engine BookingService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger}
}

func (h *AdminHandler) Register(mux *http.ServeMux, auth AdminAuth) {
	guard := RequireAdmin(auth, h.logger)
	mux.Handle("GET /api/v1/admin/bookings", guard(http.HandlerFunc(h.List)))
	mux.Handle("PATCH /api/v1/admin/bookings/{id}", guard(http.HandlerFunc(h.SetStatus)))
}

type adminBookingItem struct {
	ID            string `json:"id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Status        string `json:"status"`
	StaffOverride bool   `json:"staff_override"`
}

type adminListResponse struct {
	Rows  []adminBookingItem `json:"rows"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// List accepts q, status, dateFrom, dateTo (YYYY-MM-DD, whole UTC days), page
// and limit.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.BookingFilter{
		Query:  q.Get("q"),
		Status: model.Status(strings.TrimSpace(q.Get("status"))),
	}
	var err error
	if f.Page, err = intParam(q.Get("page")); err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if raw := strings.TrimSpace(q.Get("dateFrom")); raw != "" {
		d, err := availability.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid dateFrom", http.StatusBadRequest)
			return
		}
		f.DateFrom = d.Midnight(time.UTC)
	}
	if raw := strings.TrimSpace(q.Get("dateTo")); raw != "" {
		d, err := availability.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid dateTo", http.StatusBadRequest)
			return
		}
		f.DateTo = d.Midnight(time.UTC).AddDate(0, 0, 1)
	}
	f.Normalize()

	rows, err := h.engine.SearchBookings(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := adminListResponse{Rows: make([]adminBookingItem, 0, len(rows)), Page: f.Page, Limit: f.Limit}
	for _, b := range rows {
		resp.Rows = append(resp.Rows, adminBookingItem{
			ID:            b.ID,
			ServiceID:     b.ServiceID,
			ServiceName:   b.ServiceName,
			StartsAt:      formatTime(b.StartsAt),
			EndsAt:        formatTime(b.EndsAt),
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			Status:        string(b.Status),
			StaffOverride: b.StaffOverride,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status" validate:"notblank"`
	}
	if err := decodeBody(r.Body, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := h.engine.SetStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, false))
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
