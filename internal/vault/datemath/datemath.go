// Package datemath holds the date arithmetic every status and derivation in
// the vault is built on. Renewal dates are calendar dates (YYYY-MM-DD) and
// are interpreted as UTC midnight.
package datemath

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ExpiringThresholdDays is the single urgency rule: a renewal this many days
// away or fewer counts as expiring.
const ExpiringThresholdDays = 30

// DateLayout is the stored renewal date format.
const DateLayout = time.DateOnly

var ErrParse = errors.New("datemath: unparseable date")

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Parse reads a renewal date. A full RFC3339 timestamp is accepted and
// reduced to its UTC date.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
}

// DaysUntil is ceil((date - now) / 24h). The instants are subtracted as is,
// so the result depends on the time of day of now.
func DaysUntil(dateStr string, now time.Time) (int, error) {
	t, err := Parse(dateStr)
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(t.Sub(now).Hours() / 24)), nil
}

// Status is the urgency bucket of a domain.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring"
	StatusExpired      Status = "expired"
	// StatusUnknown marks a record whose renewal date does not parse.
	StatusUnknown Status = "unknown"
)

// StatusFor maps days left to a status.
func StatusFor(days int) Status {
	switch {
	case days < 0:
		return StatusExpired
	case days <= ExpiringThresholdDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// IsUrgent reports whether days falls inside the expiring window, expired
// included.
func IsUrgent(days int) bool { return days <= ExpiringThresholdDays }

// Rank orders statuses from most to least urgent.
func (s Status) Rank() int {
	switch s {
	case StatusExpired:
		return 0
	case StatusExpiringSoon:
		return 1
	case StatusActive:
		return 2
	default:
		return 3
	}
}

// MonthBucket returns the zero-based month of dateStr.
func MonthBucket(dateStr string) (int, error) {
	t, err := Parse(dateStr)
	if err != nil {
		return 0, err
	}
	return int(t.Month()) - 1, nil
}

// DayKey canonicalises dateStr to YYYY-MM-DD.
func DayKey(dateStr string) (string, error) {
	t, err := Parse(dateStr)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// ICSTimestamp formats t in UTC basic format, YYYYMMDDTHHMMSSZ.
func ICSTimestamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// ICSDate is ICSTimestamp of a renewal date.
func ICSDate(dateStr string) (string, error) {
	t, err := Parse(dateStr)
	if err != nil {
		return "", err
	}
	return ICSTimestamp(t), nil
}

// Today returns the UTC date of now as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// AddMonths adds n calendar months to now's UTC date, clamping to the end of
// the target month.
func AddMonths(now time.Time, n int) time.Time {
	y, m, d := now.UTC().Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(d, last), 0, 0, 0, 0, time.UTC)
}

// RollForwardYears advances dateStr by whole years until it is on or after
// today. It reports the new date and how many years were added.
func RollForwardYears(dateStr string, now time.Time) (string, int, error) {
	t, err := Parse(dateStr)
	if err != nil {
		return "", 0, err
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	years := 0
	next := t
	for next.Before(today) {
		years++
		next = t.AddDate(years, 0, 0)
	}
	return next.Format(DateLayout), years, nil
}
