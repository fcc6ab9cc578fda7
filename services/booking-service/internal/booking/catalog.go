package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// CreateService adds a catalog entry. Operators reach it through bookingctl.
func (e *Engine) CreateService(ctx context.Context, name string, durationMinutes int) (model.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Service{}, validationf("service name is required")
	}
	if durationMinutes <= 0 {
		return model.Service{}, validationf("duration must be positive, got %d", durationMinutes)
	}
	svc, err := e.store.CreateService(ctx, model.Service{
		ID:              uuid.NewString(),
		Name:            name,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return model.Service{}, classify("create service", err)
	}
	return svc, nil
}

// AddWindow attaches a weekly window to a service. Clock values are stored
// normalized to HH:MM:SS.
func (e *Engine) AddWindow(ctx context.Context, serviceID string, weekday time.Weekday, start, end string) (model.AvailabilityWindow, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return model.AvailabilityWindow{}, validationf("weekday must be 0-6, got %d", weekday)
	}
	startClock, ok := availability.NormalizeClock(start)
	if !ok || startClock == "24:00:00" {
		return model.AvailabilityWindow{}, validationf("invalid start time %q", start)
	}
	endClock, ok := availability.NormalizeClock(end)
	if !ok {
		return model.AvailabilityWindow{}, validationf("invalid end time %q", end)
	}
	if endClock <= startClock {
		return model.AvailabilityWindow{}, validationf("window end %s must be after start %s", endClock, startClock)
	}
	if _, err := e.store.GetService(ctx, serviceID); err != nil {
		return model.AvailabilityWindow{}, classify("get service", err)
	}
	w, err := e.store.AddWindow(ctx, model.AvailabilityWindow{
		ID:        uuid.NewString(),
		ServiceID: serviceID,
		Weekday:   weekday,
		StartTime: startClock,
		EndTime:   endClock,
	})
	if err != nil {
		return model.AvailabilityWindow{}, classify("add window", err)
	}
	return w, nil
}
