package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Period is a closed evaluation window.
type Period struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Midpoint splits the period in two halves for trend comparison.
func (p Period) Midpoint() time.Time {
	return p.Start.Add(p.End.Sub(p.Start) / 2)
}

// ParsePeriod resolves a named period ending at now. "all" starts at the
// zero time; callers narrow it to their data.
func ParsePeriod(name string, now time.Time) (Period, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "month"
	}

	end := now
	var start time.Time
	switch name {
	case "week":
		start = Day(now).AddDate(0, 0, -6)
	case "month":
		start = Day(now).AddDate(0, 0, -29)
	case "quarter":
		start = Day(now).AddDate(0, 0, -89)
	case "year":
		start = Day(now).AddDate(0, 0, -364)
	case "all":
		start = time.Time{}
	default:
		return Period{}, fmt.Errorf("%w: %s", ErrUnknownPeriod, name)
	}

	return Period{Name: name, Start: start, End: end}, nil
}
