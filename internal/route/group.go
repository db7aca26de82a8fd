package route

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
)

// DayLayout is the calendar day key format.
const DayLayout = "2006-01-02"

// DayKey returns the UTC calendar day of t. Day boundaries are UTC for every
// caller regardless of the client's timezone.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD key into UTC midnight.
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return t, nil
}

// DayBounds returns the half open UTC window [from, to) covering day.
func DayBounds(day string) (time.Time, time.Time, error) {
	from, err := ParseDay(day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 0, 1), nil
}

// GroupByDay buckets fixes by UTC day and sorts each bucket by timestamp.
// When date is not empty only that day is kept. The input is not modified.
func GroupByDay(fixes []location.Fix, date string) map[string][]location.Fix {
	groups := make(map[string][]location.Fix)
	for _, f := range fixes {
		key := DayKey(f.Timestamp)
		if date != "" && key != date {
			continue
		}
		groups[key] = append(groups[key], f)
	}

	for _, points := range groups {
		SortPoints(points)
	}
	return groups
}

// SortPoints orders fixes by timestamp. Fixes sharing a timestamp are ordered
// by id so the result does not depend on input order.
func SortPoints(points []location.Fix) {
	slices.SortStableFunc(points, func(a, b location.Fix) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

// SortedDays returns the day keys of groups in ascending order.
func SortedDays(groups map[string][]location.Fix) []string {
	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
