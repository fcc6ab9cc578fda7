package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
	StatusNoShow      Status = "no_show"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusConfirmed, StatusCancelled, StatusRescheduled, StatusNoShow}

// BusyStatuses are the statuses whose intervals block slots and take part in
// the non-overlap guarantee.
var BusyStatuses = []Status{StatusConfirmed, StatusRescheduled}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

func (s Status) Busy() bool {
	for _, b := range BusyStatuses {
		if s == b {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            string
	ServiceID     string
	StartsAt      time.Time
	EndsAt        time.Time
	CustomerName  string
	CustomerEmail string
	CancelToken   string
	Status        Status
	StaffOverride bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookingFilter narrows the staff booking list. Zero values mean "any".
type BookingFilter struct {
	Query    string
	Status   Status
	DateFrom time.Time
	DateTo   time.Time
	Page     int
	Limit    int
}

// Normalize clamps Page to >= 1 and Limit to 1..100 (default 20).
func (f *BookingFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	f.Query = strings.TrimSpace(f.Query)
}

func (f BookingFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// BookingRow is a booking joined with its service name for the staff list.
type BookingRow struct {
	Booking
	ServiceName string
}
