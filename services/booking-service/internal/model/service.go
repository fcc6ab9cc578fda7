package model

import "time"

// Service is a bookable catalog entry with a fixed appointment length.
type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// AvailabilityWindow is a recurring weekly range of local time-of-day during
// which a service accepts bookings. StartTime and EndTime are kept as the
// store returns them ("HH:MM", "HH:MM:SS", ...).
type AvailabilityWindow struct {
	ID        string
	ServiceID string
	Weekday   time.Weekday
	StartTime string
	EndTime   string
}
