package recording

import (
	"fmt"
	"slices"
	"time"
)

// DateRange bounds createdAt inclusively on both ends. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DurationRange bounds the recording length inclusively. A zero Max means
// no upper bound.
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

// Criteria selects recordings. Every set predicate must hold.
type Criteria struct {
	CustomerNames []string
	DateRange     *DateRange
	Duration      *DurationRange
}

// IsZero reports whether no predicate is set.
func (c Criteria) IsZero() bool {
	return len(c.CustomerNames) == 0 && c.DateRange == nil && c.Duration == nil
}

// Match reports whether r satisfies every predicate in c.
func (c Criteria) Match(r Recording) bool {
	if len(c.CustomerNames) > 0 && !slices.Contains(c.CustomerNames, r.CustomerName) {
		return false
	}
	if dr := c.DateRange; dr != nil {
		if !dr.Start.IsZero() && r.CreatedAt.Before(dr.Start) {
			return false
		}
		if !dr.End.IsZero() && r.CreatedAt.After(dr.End) {
			return false
		}
	}
	if d := c.Duration; d != nil {
		length := r.Length()
		if length < d.Min {
			return false
		}
		if d.Max > 0 && length > d.Max {
			return false
		}
	}
	return true
}

// Filter returns the recordings matching c in their original order. With
// no criteria the input is returned unchanged.
func Filter(recordings []Recording, c Criteria) []Recording {
	if c.IsZero() {
		return recordings
	}
	matched := make([]Recording, 0, len(recordings))
	for _, r := range recordings {
		if c.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// EndOfDay returns the last nanosecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// ParseBound parses a user-supplied date range bound. A date without a
// time covers the whole UTC day, the same zone ParseTimestamp reads
// date-only createdAt values in: its first instant, or its last when end
// is set.
func ParseBound(s string, end bool) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.UTC); err == nil {
		if end {
			return EndOfDay(t), nil
		}
		return t, nil
	}
	ts, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalid, s)
	}
	return ts.Time, nil
}
