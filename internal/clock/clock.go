// Package clock supplies "now" and the location whose calendar days every
// classifier works in.
package clock

import (
	"fmt"
	"strings"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System reads the wall clock and reports it in Location (time.Local when nil).
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	return time.Now().In(s.location())
}

func (s System) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Fixed always reports the same instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

// Location returns the location a clock reports its instants in.
func Location(c Clock) *time.Location {
	if c == nil {
		return time.Local
	}
	return c.Now().Location()
}

// LoadLocation resolves an IANA zone name; empty means time.Local.
func LoadLocation(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", trimmed, err)
	}
	return loc, nil
}
