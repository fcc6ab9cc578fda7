package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Store is the persistence the engine needs. Implementations own the
// non-overlap guarantee: InsertBooking and RescheduleByToken must be single
// atomic writes that fail with model.ErrConflict when the interval collides
// with another busy booking of the same service.
type Store interface {
	availability.ServiceSource
	availability.WindowSource
	availability.BookingSource

	ListServices(ctx context.Context) ([]model.Service, error)
	InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	GetBookingByToken(ctx context.Context, token string) (model.Booking, error)
	// RescheduleByToken moves the booking and marks it rescheduled, checking
	// overlap against every other busy booking of its service.
	RescheduleByToken(ctx context.Context, token string, startsAt, endsAt time.Time) (model.Booking, error)
	CancelByToken(ctx context.Context, token string) (model.Booking, error)
	// SetStatus is the staff path: no overlap check.
	SetStatus(ctx context.Context, bookingID string, status model.Status) (model.Booking, error)
	SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error)

	CreateService(ctx context.Context, svc model.Service) (model.Service, error)
	AddWindow(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error)
}

// timeoutStore bounds every store round trip.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

func withTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (s *timeoutStore) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.GetService(ctx, serviceID)
}

func (s *timeoutStore) ListServices(ctx context.Context) ([]model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListServices(ctx)
}

func (s *timeoutStore) ListWindows(ctx context.Context, serviceID string, weekday time.Weekday) ([]model.AvailabilityWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListWindows(ctx, serviceID, weekday)
}

func (s *timeoutStore) ListBookingsStartingBetween(ctx context.Context, serviceID string, from, to time.Time) ([]model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.ListBookingsStartingBetween(ctx, serviceID, from, to)
}

func (s *timeoutStore) InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.InsertBooking(ctx, b)
}

func (s *timeoutStore) GetBookingByToken(ctx context.Context, token string) (model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.GetBookingByToken(ctx, token)
}

func (s *timeoutStore) RescheduleByToken(ctx context.Context, token string, startsAt, endsAt time.Time) (model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.RescheduleByToken(ctx, token, startsAt, endsAt)
}

func (s *timeoutStore) CancelByToken(ctx context.Context, token string) (model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.CancelByToken(ctx, token)
}

func (s *timeoutStore) SetStatus(ctx context.Context, bookingID string, status model.Status) (model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.SetStatus(ctx, bookingID, status)
}

func (s *timeoutStore) SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.SearchBookings(ctx, f)
}

func (s *timeoutStore) CreateService(ctx context.Context, svc model.Service) (model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.CreateService(ctx, svc)
}

func (s *timeoutStore) AddWindow(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.AddWindow(ctx, w)
}
