package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// maxInsertAttempts bounds retries after a generated id or token collides.
const maxInsertAttempts = 3

// Notifier delivers the confirmation email. Failures never fail a booking.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Config struct {
	// Location is the fixed offset every local date and window is read in.
	Location *time.Location
	// StoreTimeout bounds each store call. Zero disables the bound.
	StoreTimeout time.Duration
	// RequireWindow rejects bookings that do not fit inside a window.
	RequireWindow bool
	BusyStatuses  []model.Status
	// PublicBaseURL prefixes the cancel link in emails.
	PublicBaseURL string
	// ReschedulePageURL is a client page that accepts ?token=. Empty
	// leaves the reschedule link out of confirmation emails.
	ReschedulePageURL string
}

// Engine is the stateless entry point for availability and bookings. It holds
// no locks; overlap safety comes from the store.
type Engine struct {
	store     Store
	resolver  *availability.Resolver
	generator *availability.Generator
	notifier  Notifier
	logger    *slog.Logger
	cfg       Config
	tracer    trace.Tracer
}

func NewEngine(store Store, notifier Notifier, logger *slog.Logger, cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	store = withTimeout(store, cfg.StoreTimeout)
	resolver := availability.NewResolver(store, store, cfg.Location)
	return &Engine{
		store:     store,
		resolver:  resolver,
		generator: availability.NewGenerator(resolver, store, cfg.BusyStatuses),
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		tracer:    otel.Tracer("booking"),
	}
}

func (e *Engine) Location() *time.Location {
	return e.resolver.Location()
}

func (e *Engine) ListServices(ctx context.Context) ([]model.Service, error) {
	services, err := e.store.ListServices(ctx)
	if err != nil {
		return nil, classify("list services", err)
	}
	return services, nil
}

// ListSlots returns the free slots of a service on a local calendar date.
func (e *Engine) ListSlots(ctx context.Context, serviceID string, date availability.Date) ([]availability.Slot, error) {
	ctx, span := e.tracer.Start(ctx, "booking.ListSlots", trace.WithAttributes(
		attribute.String("service_id", serviceID),
		attribute.String("date", date.String()),
	))
	defer span.End()

	slots, err := e.generator.Generate(ctx, serviceID, date)
	if err != nil {
		return nil, spanErr(span, classify("list slots", err))
	}
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

type CreateRequest struct {
	ServiceID string
	Start     time.Time
	Name      string
	Email     string
}

func (r CreateRequest) normalize() (CreateRequest, error) {
	r.ServiceID = strings.TrimSpace(r.ServiceID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.ServiceID == "" {
		return r, validationf("service_id is required")
	}
	if r.Name == "" {
		return r, validationf("name is required")
	}
	if r.Email == "" {
		return r, validationf("email is required")
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil {
		return r, validationf("invalid email %q", r.Email)
	}
	r.Email = addr.Address
	if r.Start.IsZero() {
		return r, validationf("start is required")
	}
	return r, nil
}

// CreateBooking books [start, start+duration) for a customer. The insert is a
// single guarded write; a collision with another busy booking is ErrConflict.
func (e *Engine) CreateBooking(ctx context.Context, req CreateRequest) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.String("service_id", req.ServiceID),
	))
	defer span.End()

	req, err := req.normalize()
	if err != nil {
		return model.Booking{}, spanErr(span, err)
	}
	svc, err := e.service(ctx, req.ServiceID)
	if err != nil {
		return model.Booking{}, spanErr(span, err)
	}

	start := req.Start.UTC()
	end := start.Add(svc.Duration())
	if err := e.checkWindow(ctx, svc.ID, start, end); err != nil {
		return model.Booking{}, spanErr(span, err)
	}

	var b model.Booking
	for attempt := 1; ; attempt++ {
		token, err := NewCancelToken()
		if err != nil {
			return model.Booking{}, spanErr(span, classify("cancel token", err))
		}
		b, err = e.store.InsertBooking(ctx, model.Booking{
			ID:            uuid.NewString(),
			ServiceID:     svc.ID,
			StartsAt:      start,
			EndsAt:        end,
			CustomerName:  req.Name,
			CustomerEmail: req.Email,
			CancelToken:   token,
			Status:        model.StatusConfirmed,
		})
		if err == nil {
			break
		}
		// A generated id or token collided; draw new ones.
		if errors.Is(err, model.ErrDuplicate) && attempt < maxInsertAttempts {
			continue
		}
		return model.Booking{}, spanErr(span, classify("insert booking", err))
	}
	span.SetAttributes(attribute.String("booking_id", b.ID))

	e.notifyConfirmation(ctx, b, svc)
	return b, nil
}

// CancelBooking cancels the booking owned by token. Cancelling twice is not
// an error.
func (e *Engine) CancelBooking(ctx context.Context, token string) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.CancelBooking")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return model.Booking{}, spanErr(span, validationf("token is required"))
	}
	b, err := e.store.CancelByToken(ctx, token)
	if err != nil {
		return model.Booking{}, spanErr(span, classify("cancel booking", err))
	}
	e.logger.Info("booking cancelled", "booking_id", b.ID, "service_id", b.ServiceID)
	return b, nil
}

// RescheduleBooking moves the booking owned by token to newStart. The new
// interval is checked against every other busy booking of the service.
func (e *Engine) RescheduleBooking(ctx context.Context, token string, newStart time.Time) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.RescheduleBooking")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return model.Booking{}, spanErr(span, validationf("token is required"))
	}
	if newStart.IsZero() {
		return model.Booking{}, spanErr(span, validationf("new_start is required"))
	}
	current, err := e.store.GetBookingByToken(ctx, token)
	if err != nil {
		return model.Booking{}, spanErr(span, classify("get booking", err))
	}
	if !CanTransition(ActorCustomer, current.Status, model.StatusRescheduled) {
		return model.Booking{}, spanErr(span, validationf("booking cannot be rescheduled"))
	}
	svc, err := e.service(ctx, current.ServiceID)
	if err != nil {
		return model.Booking{}, spanErr(span, err)
	}

	start := newStart.UTC()
	end := start.Add(svc.Duration())
	if err := e.checkWindow(ctx, svc.ID, start, end); err != nil {
		return model.Booking{}, spanErr(span, err)
	}
	b, err := e.store.RescheduleByToken(ctx, token, start, end)
	if err != nil {
		return model.Booking{}, spanErr(span, classify("reschedule booking", err))
	}
	span.SetAttributes(attribute.String("booking_id", b.ID))
	e.logger.Info("booking rescheduled", "booking_id", b.ID, "starts_at", b.StartsAt)
	return b, nil
}

// SetStatus is the staff override. It accepts any known status from any
// status and skips the overlap guard, so it can produce overlapping busy
// bookings.
func (e *Engine) SetStatus(ctx context.Context, bookingID string, status string) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "booking.SetStatus", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("status", status),
	))
	defer span.End()

	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return model.Booking{}, spanErr(span, validationf("booking id is required"))
	}
	to, err := model.ParseStatus(status)
	if err != nil {
		return model.Booking{}, spanErr(span, validationf("%v", err))
	}
	if !CanTransition(ActorStaff, "", to) {
		return model.Booking{}, spanErr(span, validationf("status %q not allowed", to))
	}
	b, err := e.store.SetStatus(ctx, bookingID, to)
	if err != nil {
		return model.Booking{}, spanErr(span, classify("set status", err))
	}
	e.logger.Info("booking status set", "booking_id", b.ID, "status", string(b.Status), "staff_override", b.StaffOverride)
	return b, nil
}

func (e *Engine) SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error) {
	f.Normalize()
	if f.Status != "" {
		s, err := model.ParseStatus(string(f.Status))
		if err != nil {
			return nil, validationf("%v", err)
		}
		f.Status = s
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return nil, validationf("dateTo is before dateFrom")
	}
	rows, err := e.store.SearchBookings(ctx, f)
	if err != nil {
		return nil, classify("search bookings", err)
	}
	return rows, nil
}

func (e *Engine) service(ctx context.Context, serviceID string) (model.Service, error) {
	svc, err := e.store.GetService(ctx, serviceID)
	if err != nil {
		return model.Service{}, classify("get service", err)
	}
	if svc.DurationMinutes <= 0 {
		return model.Service{}, validationf("service %s has no duration", svc.ID)
	}
	return svc, nil
}

func (e *Engine) checkWindow(ctx context.Context, serviceID string, start, end time.Time) error {
	if !e.cfg.RequireWindow {
		return nil
	}
	booking := availability.Interval{Start: start, End: end}
	windows, err := e.resolver.Intervals(ctx, serviceID, availability.DateOf(start.In(e.cfg.Location)))
	if err != nil {
		return classify("resolve windows", err)
	}
	for _, w := range windows {
		if w.Contains(booking) {
			return nil
		}
	}
	return ErrOutsideAvailability
}

func (e *Engine) notifyConfirmation(ctx context.Context, b model.Booking, svc model.Service) {
	if e.notifier == nil {
		return
	}
	subject, body, err := renderConfirmation(e.cfg, b, svc)
	if err != nil {
		e.logger.Error("render confirmation failed", "booking_id", b.ID, "err", err)
		return
	}
	if err := e.notifier.Send(ctx, b.CustomerEmail, subject, body); err != nil {
		e.logger.Warn("confirmation email not sent", "booking_id", b.ID, "err", err)
	}
}

func spanErr(span trace.Span, err error) error {
	if err != nil && !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
