package domain

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day stored as minutes since midnight.
// Its text form is "HH:mm".
type ClockTime int

// ParseClockTime parses "HH:mm" (a single-digit hour is accepted).
// A trailing ":ss" as produced by Postgres time columns is tolerated and dropped.
func ParseClockTime(s string) (ClockTime, error) {
	bad := fmt.Errorf("%w: time %q must be HH:mm", ErrValidation, s)
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, bad
	}
	h, ok := digits(parts[0], 1, 2)
	if !ok || h > 23 {
		return 0, bad
	}
	m, ok := digits(parts[1], 2, 2)
	if !ok || m > 59 {
		return 0, bad
	}
	if len(parts) == 3 {
		if sec, ok := digits(parts[2], 2, 2); !ok || sec > 59 {
			return 0, bad
		}
	}
	return ClockTime(h*60 + m), nil
}

// digits parses s as an unsigned decimal of lo to hi ASCII digits.
func digits(s string, lo, hi int) (int, bool) {
	if len(s) < lo || len(s) > hi {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// ClockTimeOf returns the time of day of t, truncated to the minute.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int { return int(c) }

// Duration returns the offset from midnight.
func (c ClockTime) Duration() time.Duration { return time.Duration(c) * time.Minute }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText encodes c as "HH:mm".
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "HH:mm".
func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
