package types

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an optional calendar-day window. To covers the whole day.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDateRange reads YYYY-MM-DD bounds; blank bounds stay open.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if v := strings.TrimSpace(from); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q", v)
		}
		r.From = &t
	}
	if v := strings.TrimSpace(to); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q", v)
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return DateRange{}, fmt.Errorf("to date %s is before from date %s", to, from)
	}
	return r, nil
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// Start is the inclusive lower bound.
func (r DateRange) Start() *time.Time {
	return r.From
}

// End is the exclusive upper bound: the start of the day after To.
func (r DateRange) End() *time.Time {
	if r.To == nil {
		return nil
	}
	end := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, r.To.Location()).AddDate(0, 0, 1)
	return &end
}

// Contains reports whether t falls inside the window.
func (r DateRange) Contains(t time.Time) bool {
	if start := r.Start(); start != nil && t.Before(*start) {
		return false
	}
	if end := r.End(); end != nil && !t.Before(*end) {
		return false
	}
	return true
}
