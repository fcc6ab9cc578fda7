package availability

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type ServiceSource interface {
	GetService(ctx context.Context, serviceID string) (model.Service, error)
}

type WindowSource interface {
	// ListWindows returns the windows of a service for one weekday in
	// insertion order.
	ListWindows(ctx context.Context, serviceID string, weekday time.Weekday) ([]model.AvailabilityWindow, error)
}

// Resolver selects the recurring windows that apply to a calendar date under
// a single fixed UTC offset.
type Resolver struct {
	services ServiceSource
	windows  WindowSource
	loc      *time.Location
}

func NewResolver(services ServiceSource, windows WindowSource, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{services: services, windows: windows, loc: loc}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the windows for serviceID on date. An unknown service
// yields no windows rather than an error.
func (r *Resolver) Resolve(ctx context.Context, serviceID string, date Date) ([]model.AvailabilityWindow, error) {
	_, windows, err := r.resolve(ctx, serviceID, date)
	return windows, err
}

// Intervals resolves the date's windows to absolute instants, dropping the
// ones that do not parse or are empty.
func (r *Resolver) Intervals(ctx context.Context, serviceID string, date Date) ([]Interval, error) {
	windows, err := r.Resolve(ctx, serviceID, date)
	if err != nil {
		return nil, err
	}
	out := make([]Interval, 0, len(windows))
	for _, w := range windows {
		if iv, ok := WindowInterval(date, w.StartTime, w.EndTime, r.loc); ok {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, serviceID string, date Date) (model.Service, []model.AvailabilityWindow, error) {
	svc, err := r.services.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Service{}, nil, nil
		}
		return model.Service{}, nil, err
	}
	windows, err := r.windows.ListWindows(ctx, serviceID, date.Weekday(r.loc))
	if err != nil {
		return model.Service{}, nil, err
	}
	return svc, windows, nil
}
