package availability

import (
	"context"
	"time"

	"bookline/internal/calendar"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/model"
)

// ReservationSource is the slice of the reservation repository the planner
// needs: active (pending or confirmed) reservations whose intervals touch
// [from, to).
type ReservationSource interface {
	FindActiveInWindow(ctx context.Context, from, to time.Time) ([]*model.Reservation, error)
}

// GranularitySource yields the slot granularity in minutes. It is re-read
// on every FreeSlots call so operators can adjust it without a restart.
type GranularitySource func() int

// Planner enumerates the bookable start times for a day. Results are
// recomputed on every call, never cached: a slot it returns is guaranteed
// free at the moment of computation.
type Planner struct {
	cal         *calendar.Calendar
	source      ReservationSource
	granularity GranularitySource
}

func NewPlanner(cal *calendar.Calendar, source ReservationSource, granularity GranularitySource) *Planner {
	return &Planner{
		cal:         cal,
		source:      source,
		granularity: granularity,
	}
}

// FreeSlots returns every start time at the configured granularity on the
// given date where an appointment of durationMin would neither leave the
// open window nor overlap an active reservation. A closed day yields an
// empty slice. The end boundary is inclusive: a slot ending exactly at
// closing time is bookable.
func (p *Planner) FreeSlots(ctx context.Context, date time.Time, durationMin int) ([]time.Time, error) {
	if durationMin <= 0 {
		return nil, apperrors.InvalidInput("duration must be a positive number of minutes")
	}

	hours := p.cal.HoursFor(date)
	if !hours.Open {
		return []time.Time{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	// One fetch per call; every candidate is checked against the same
	// snapshot. The window spans a day either side, mirroring the conflict
	// pre-filter used on writes.
	active, err := p.source.FindActiveInWindow(ctx, dayStart.AddDate(0, 0, -1), dayStart.AddDate(0, 0, 2))
	if err != nil {
		return nil, apperrors.Internal("Failed to load reservations for availability", err)
	}

	step := p.granularity()
	if step <= 0 {
		step = 30
	}

	var slots []time.Time
	for minute := hours.OpensAt; minute+durationMin <= hours.ClosesAt; minute += step {
		candidate := dayStart.Add(time.Duration(minute) * time.Minute)
		if FindConflict(candidate, durationMin, active, "") == nil {
			slots = append(slots, candidate)
		}
	}

	if slots == nil {
		slots = []time.Time{}
	}
	return slots, nil
}
