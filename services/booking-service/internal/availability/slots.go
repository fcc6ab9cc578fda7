package availability

import (
	"context"
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Slot is a bookable interval exactly one service duration long.
type Slot struct {
	Start time.Time
	End   time.Time
}

type BookingSource interface {
	// ListBookingsStartingBetween returns bookings of the service whose start
	// lies in [from, to], in any status.
	ListBookingsStartingBetween(ctx context.Context, serviceID string, from, to time.Time) ([]model.Booking, error)
}

// Generator turns resolved windows into free slots for a date.
type Generator struct {
	resolver *Resolver
	bookings BookingSource
	busy     map[model.Status]bool
}

// NewGenerator builds a generator that treats bookings in busyStatuses as
// blocking. An empty list falls back to model.BusyStatuses.
func NewGenerator(resolver *Resolver, bookings BookingSource, busyStatuses []model.Status) *Generator {
	if len(busyStatuses) == 0 {
		busyStatuses = model.BusyStatuses
	}
	busy := make(map[model.Status]bool, len(busyStatuses))
	for _, s := range busyStatuses {
		busy[s] = true
	}
	return &Generator{resolver: resolver, bookings: bookings, busy: busy}
}

// Generate lists free slots for serviceID on date, ascending by start. Each
// window is walked on its own, so overlapping windows can yield overlapping
// or duplicate slots.
func (g *Generator) Generate(ctx context.Context, serviceID string, date Date) ([]Slot, error) {
	svc, windows, err := g.resolver.resolve(ctx, serviceID, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 || svc.DurationMinutes <= 0 {
		return []Slot{}, nil
	}

	loc := g.resolver.loc
	dayStart, dayEnd := DayBounds(date, loc)
	booked, err := g.bookings.ListBookingsStartingBetween(ctx, serviceID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(booked))
	for _, b := range booked {
		if g.busy[b.Status] {
			busy = append(busy, Interval{Start: b.StartsAt, End: b.EndsAt})
		}
	}

	slots := []Slot{}
	for _, w := range windows {
		win, ok := WindowInterval(date, w.StartTime, w.EndTime, loc)
		if !ok {
			continue
		}
		slots = append(slots, WalkWindow(win, svc.Duration(), busy)...)
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// WalkWindow steps through window in duration-sized slots aligned to the
// window start and keeps the ones that overlap no busy interval. A slot that
// would run past the window end is never offered.
func WalkWindow(window Interval, duration time.Duration, busy []Interval) []Slot {
	if duration <= 0 || !window.Valid() {
		return nil
	}
	var slots []Slot
	for cursor := window.Start; ; {
		candidate := NewInterval(cursor, duration)
		if candidate.End.After(window.End) {
			break
		}
		if !overlapsAny(candidate, busy) {
			slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
		}
		cursor = candidate.End
	}
	return slots
}
