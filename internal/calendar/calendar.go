package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DayHours is one weekday's open window, expressed in minutes from
// midnight. OpensAt < ClosesAt whenever Open is true.
type DayHours struct {
	Open     bool
	OpensAt  int
	ClosesAt int
}

// Window renders the open window as "HH:MM-HH:MM" for error details.
func (d DayHours) Window() string {
	if !d.Open {
		return "closed"
	}
	return fmt.Sprintf("%s-%s", FormatMinutes(d.OpensAt), FormatMinutes(d.ClosesAt))
}

// Calendar maps a date to that weekday's business hours. It is a pure
// function of the weekday component: every time-of-day on the same date
// gets the same answer. SlotValidator and the availability planner both go
// through it so they can never disagree on what "open" means.
type Calendar struct {
	days [7]DayHours
}

// New parses seven per-weekday window strings, indexed by time.Weekday
// (Sunday first). Each entry is "HH:MM-HH:MM" or "closed".
func New(weekly [7]string) (*Calendar, error) {
	c := &Calendar{}
	for day, raw := range weekly {
		hours, err := parseWindow(raw)
		if err != nil {
			return nil, fmt.Errorf("hours for %s: %w", time.Weekday(day), err)
		}
		c.days[day] = hours
	}
	return c, nil
}

// HoursFor returns the open window for the date's weekday.
func (c *Calendar) HoursFor(date time.Time) DayHours {
	return c.days[date.Weekday()]
}

// MinutesIntoDay is the date's time-of-day in minutes from midnight.
func MinutesIntoDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatMinutes renders minutes from midnight as "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func parseWindow(raw string) (DayHours, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "closed" {
		return DayHours{}, nil
	}

	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return DayHours{}, fmt.Errorf("expected HH:MM-HH:MM or 'closed', got %q", raw)
	}

	opens, err := parseClock(parts[0])
	if err != nil {
		return DayHours{}, err
	}
	closes, err := parseClock(parts[1])
	if err != nil {
		return DayHours{}, err
	}
	if opens >= closes {
		return DayHours{}, fmt.Errorf("opening time %s must be before closing time %s", parts[0], parts[1])
	}

	return DayHours{Open: true, OpensAt: opens, ClosesAt: closes}, nil
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: must be HH:MM 24-hour format", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}
