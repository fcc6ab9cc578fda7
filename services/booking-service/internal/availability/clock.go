package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Midnight is 00:00:00 of the date in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday is the Sunday-origin weekday of the date's local midnight in loc.
func (d Date) Weekday(loc *time.Location) time.Weekday {
	return d.Midnight(loc).Weekday()
}

// DayBounds returns [00:00:00, 23:59:59] of the date in loc. The upper bound
// is inclusive and second-granular.
func DayBounds(d Date, loc *time.Location) (time.Time, time.Time) {
	start := d.Midnight(loc)
	return start, time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, loc)
}

// ParseOffset turns a fixed UTC offset such as "+06:00", "-0530" or "Z" into
// a location. Named zones are rejected; the booking engine only supports one
// fixed offset.
func ParseOffset(raw string) (*time.Location, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "Z" || s == "z" {
		return time.FixedZone("UTC", 0), nil
	}
	if s[0] != '+' && s[0] != '-' {
		return nil, fmt.Errorf("invalid utc offset %q", raw)
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 2 && len(body) != 4 {
		return nil, fmt.Errorf("invalid utc offset %q", raw)
	}
	hours, err := strconv.Atoi(body[:2])
	if err != nil {
		return nil, fmt.Errorf("invalid utc offset %q", raw)
	}
	minutes := 0
	if len(body) == 4 {
		if minutes, err = strconv.Atoi(body[2:]); err != nil {
			return nil, fmt.Errorf("invalid utc offset %q", raw)
		}
	}
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("utc offset %q out of range", raw)
	}
	secs := sign * (hours*3600 + minutes*60)
	return time.FixedZone(formatOffset(secs), secs), nil
}

func formatOffset(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// NormalizeClock rewrites the time-of-day shapes stores hand back ("HH:MM",
// "HH:MM:SS", "HH:MM:SS.ffffff") to "HH:MM:SS". Any other shape is rejected.
func NormalizeClock(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	switch len(s) {
	case 5:
		s += ":00"
	case 8:
	default:
		return "", false
	}
	if s == "24:00:00" {
		return s, true
	}
	if _, err := time.Parse("15:04:05", s); err != nil {
		return "", false
	}
	return s, true
}

// LocalInstant converts a local time-of-day on date to an absolute instant.
// "24:00:00" means the following midnight so a window may run to end of day.
func LocalInstant(d Date, clock string, loc *time.Location) (time.Time, bool) {
	norm, ok := NormalizeClock(clock)
	if !ok {
		return time.Time{}, false
	}
	if norm == "24:00:00" {
		return d.Midnight(loc).AddDate(0, 0, 1), true
	}
	h, _ := strconv.Atoi(norm[0:2])
	m, _ := strconv.Atoi(norm[3:5])
	sec, _ := strconv.Atoi(norm[6:8])
	return time.Date(d.Year, d.Month, d.Day, h, m, sec, 0, loc), true
}

// WindowInterval resolves a recurring window to absolute instants on date.
// It reports false for unparseable times or an empty range.
func WindowInterval(d Date, startTime, endTime string, loc *time.Location) (Interval, bool) {
	start, ok := LocalInstant(d, startTime, loc)
	if !ok {
		return Interval{}, false
	}
	end, ok := LocalInstant(d, endTime, loc)
	if !ok {
		return Interval{}, false
	}
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, false
	}
	return iv, true
}
