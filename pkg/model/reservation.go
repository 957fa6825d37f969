package model

import (
	"time"
)

// Reservation statuses. The allowed transitions are enforced in one place,
// internal/reservations/service.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation origins, informational only.
const (
	OriginChat  = "chat"
	OriginStaff = "staff"
	OriginImage = "image"
)

// ActiveStatuses are the statuses that participate in conflict checks and
// availability computation. Cancelled reservations never do.
func ActiveStatuses() []string {
	return []string{StatusPending, StatusConfirmed}
}

type Reservation struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CustomerRef   string    `json:"customer_ref" bson:"customer_ref" validate:"required,min=2,max=100"`
	CustomerName  string    `json:"customer_name" bson:"customer_name" validate:"required,min=2,max=100"`
	ServiceName   string    `json:"service_name" bson:"service_name" validate:"required,min=2,max=100"`
	StartTime     time.Time `json:"start_time" bson:"start_time" validate:"required"`
	DurationMin   int       `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=480"`
	Status        string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	DepositAmount float64   `json:"deposit_amount" bson:"deposit_amount" validate:"omitempty,min=0"`
	Origin        string    `json:"origin" bson:"origin" validate:"required,oneof=chat staff image"`
	Notified      bool      `json:"notified" bson:"notified"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// EndTime is the exclusive end of the reservation interval.
func (r *Reservation) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationMin) * time.Minute)
}

// IsActive reports whether the reservation counts for conflicts.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Overlaps reports whether the reservation's half-open interval shares any
// instant with [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime().After(start)
}

// Summary is the public view of a reservation that conflict errors and
// notification intents carry. It never exposes more than staff-facing chat
// responses need.
type Summary struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	ServiceName  string    `json:"service_name"`
	StartTime    time.Time `json:"start_time"`
	DurationMin  int       `json:"duration_min"`
	Status       string    `json:"status"`
}

func (r *Reservation) Summary() Summary {
	return Summary{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		ServiceName:  r.ServiceName,
		StartTime:    r.StartTime,
		DurationMin:  r.DurationMin,
		Status:       r.Status,
	}
}

// TimeChange is the payload for rescheduling an existing reservation.
// DurationMin is optional; nil keeps the current duration.
type TimeChange struct {
	StartTime   time.Time `json:"start_time" validate:"required"`
	DurationMin *int      `json:"duration_min,omitempty" validate:"omitempty,min=5,max=480"`
}

// StatusChange is the payload for moving a reservation along its state
// machine.
type StatusChange struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}
