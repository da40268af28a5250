package stay

import (
	"sort"
)

// StayRange is the half-open interval [Start, End) a guest occupies a room.
// Either bound may be zero while a selection is in progress.
type StayRange struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// NewRange builds a range from two dates.
func NewRange(start, end Date) StayRange {
	return StayRange{Start: start, End: end}
}

// IsComplete reports whether both bounds are set and End is after Start.
func (r StayRange) IsComplete() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.End.After(r.Start)
}

// Nights returns the day count between Start and End. It is zero when a bound is
// missing and zero or negative for malformed ranges; callers guard against that.
func (r StayRange) Nights() int {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return r.Start.DaysUntil(r.End)
}

// Contains reports whether d is one of the stayed nights.
func (r StayRange) Contains(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

// Overlaps reports whether two half-open ranges share at least one night.
func (r StayRange) Overlaps(other StayRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// NightDates lists every night in [Start, End) in date order.
func (r StayRange) NightDates() []Date {
	n := r.Nights()
	if n <= 0 {
		return nil
	}
	dates := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, r.Start.AddDays(i))
	}
	return dates
}

// DateSet is an unordered set of dates.
type DateSet map[Date]struct{}

// NewDateSet returns a set holding dates.
func NewDateSet(dates ...Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// ParseDateSet parses YYYY-MM-DD strings into a set.
func ParseDateSet(values []string) (DateSet, error) {
	s := make(DateSet, len(values))
	for _, v := range values {
		d, err := Parse(v)
		if err != nil {
			return nil, err
		}
		s[d] = struct{}{}
	}
	return s, nil
}

// Has is safe on a nil set.
func (s DateSet) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

func (s DateSet) Add(d Date) {
	s[d] = struct{}{}
}

// AddRange adds every night of r.
func (s DateSet) AddRange(r StayRange) {
	for _, d := range r.NightDates() {
		s[d] = struct{}{}
	}
}

// AnyBetween reports whether the set holds a date strictly between a and b.
func (s DateSet) AnyBetween(a, b Date) bool {
	if len(s) == 0 {
		return false
	}
	for d := a.AddDays(1); d.Before(b); d = d.AddDays(1) {
		if s.Has(d) {
			return true
		}
	}
	return false
}

// AnyIn reports whether any night of r is in the set.
func (s DateSet) AnyIn(r StayRange) bool {
	for _, d := range r.NightDates() {
		if s.Has(d) {
			return true
		}
	}
	return false
}

// Sorted returns the dates in ascending order.
func (s DateSet) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Strings returns the sorted dates formatted as YYYY-MM-DD.
func (s DateSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, d := range sorted {
		out[i] = d.String()
	}
	return out
}
