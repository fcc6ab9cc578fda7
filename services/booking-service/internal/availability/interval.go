package availability

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps treats both ranges as half-open, so touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return !(!i.End.After(o.Start) || !i.Start.Before(o.End))
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func overlapsAny(s Interval, busy []Interval) bool {
	for _, b := range busy {
		if s.Overlaps(b) {
			return true
		}
	}
	return false
}
