package model

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC)
	reservation := &Reservation{StartTime: base, DurationMin: 60}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical interval", base, base.Add(60 * time.Minute), true},
		{"starts inside", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"ends inside", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"contains", base.Add(-30 * time.Minute), base.Add(90 * time.Minute), true},
		{"touches at end", base.Add(60 * time.Minute), base.Add(120 * time.Minute), false},
		{"touches at start", base.Add(-60 * time.Minute), base, false},
		{"well before", base.Add(-3 * time.Hour), base.Add(-2 * time.Hour), false},
		{"well after", base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reservation.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCancelled: false,
	} {
		r := &Reservation{Status: status}
		if got := r.IsActive(); got != want {
			t.Errorf("IsActive() with status %s = %v, want %v", status, got, want)
		}
	}
}

func TestEndTime(t *testing.T) {
	start := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	r := &Reservation{StartTime: start, DurationMin: 90}

	if got, want := r.EndTime(), start.Add(90*time.Minute); !got.Equal(want) {
		t.Errorf("EndTime() = %s, want %s", got, want)
	}
}
