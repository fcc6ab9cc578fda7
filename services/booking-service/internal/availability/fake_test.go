package availability

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type fakeStore struct {
	services map[string]model.Service
	windows  []model.AvailabilityWindow
	bookings []model.Booking
	err      error

	lastFrom, lastTo time.Time
}

func (f *fakeStore) GetService(_ context.Context, id string) (model.Service, error) {
	if f.err != nil {
		return model.Service{}, f.err
	}
	svc, ok := f.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return svc, nil
}

func (f *fakeStore) ListWindows(_ context.Context, serviceID string, weekday time.Weekday) ([]model.AvailabilityWindow, error) {
	var out []model.AvailabilityWindow
	for _, w := range f.windows {
		if w.ServiceID == serviceID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBookingsStartingBetween(_ context.Context, serviceID string, from, to time.Time) ([]model.Booking, error) {
	f.lastFrom, f.lastTo = from, to
	var out []model.Booking
	for _, b := range f.bookings {
		if b.ServiceID == serviceID && !b.StartsAt.Before(from) && !b.StartsAt.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}
