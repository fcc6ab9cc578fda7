package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	EventBookingCreated       = "booking.created.v1"
	EventBookingCancelled     = "booking.cancelled.v1"
	EventBookingRescheduled   = "booking.rescheduled.v1"
	EventBookingStatusChanged = "booking.status_changed.v1"
)

const aggregateBooking = "booking"

// Event is the envelope written to outbox_events in the same transaction as
// the booking change it describes.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type BookingPayload struct {
	BookingID     string    `json:"booking_id"`
	ServiceID     string    `json:"service_id"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Status        string    `json:"status"`
	StaffOverride bool      `json:"staff_override"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingEvent builds the outbox event for b. Customer contact details stay
// out of the payload.
func BookingEvent(eventID, eventType string, b model.Booking, occurredAt time.Time) (Event, error) {
	payload, err := json.Marshal(BookingPayload{
		BookingID:     b.ID,
		ServiceID:     b.ServiceID,
		StartsAt:      b.StartsAt.UTC(),
		EndsAt:        b.EndsAt.UTC(),
		Status:        string(b.Status),
		StaffOverride: b.StaffOverride,
		OccurredAt:    occurredAt.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:       eventID,
		AggregateType: aggregateBooking,
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
