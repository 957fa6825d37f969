package calendar

import (
	"testing"
	"time"
)

var testWeek = [7]string{
	"closed",      // Sunday
	"11:00-19:00", // Monday
	"11:00-19:00", // Tuesday
	"11:00-19:00", // Wednesday
	"11:00-19:00", // Thursday
	"11:00-19:00", // Friday
	"10:00-16:00", // Saturday
}

func TestHoursFor(t *testing.T) {
	cal, err := New(testWeek)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	tests := []struct {
		name       string
		date       time.Time
		wantOpen   bool
		wantOpens  int
		wantCloses int
	}{
		{
			name:     "sunday closed at any hour",
			date:     time.Date(2026, time.September, 6, 13, 0, 0, 0, time.UTC),
			wantOpen: false,
		},
		{
			name:       "monday open",
			date:       time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC),
			wantOpen:   true,
			wantOpens:  11 * 60,
			wantCloses: 19 * 60,
		},
		{
			name:       "saturday has its own window",
			date:       time.Date(2026, time.September, 12, 23, 59, 0, 0, time.UTC),
			wantOpen:   true,
			wantOpens:  10 * 60,
			wantCloses: 16 * 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.HoursFor(tt.date)
			if got.Open != tt.wantOpen {
				t.Fatalf("HoursFor(%s).Open = %v, want %v", tt.date, got.Open, tt.wantOpen)
			}
			if !tt.wantOpen {
				return
			}
			if got.OpensAt != tt.wantOpens || got.ClosesAt != tt.wantCloses {
				t.Errorf("HoursFor(%s) = %d-%d, want %d-%d", tt.date, got.OpensAt, got.ClosesAt, tt.wantOpens, tt.wantCloses)
			}
		})
	}
}

func TestHoursForSameAnswerAllDay(t *testing.T) {
	cal, err := New(testWeek)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	day := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	want := cal.HoursFor(day)
	for hour := 0; hour < 24; hour++ {
		got := cal.HoursFor(day.Add(time.Duration(hour) * time.Hour))
		if got != want {
			t.Fatalf("HoursFor at hour %d = %+v, want %+v", hour, got, want)
		}
	}
}

func TestNewRejectsMalformedWindows(t *testing.T) {
	tests := []struct {
		name   string
		window string
	}{
		{"inverted window", "19:00-11:00"},
		{"zero-width window", "11:00-11:00"},
		{"missing closing time", "11:00"},
		{"hour out of range", "25:00-26:00"},
		{"wrong separator", "11:00/19:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := testWeek
			week[time.Wednesday] = tt.window
			if _, err := New(week); err == nil {
				t.Errorf("New() accepted malformed window %q", tt.window)
			}
		})
	}
}

func TestWindowFormatting(t *testing.T) {
	if got := (DayHours{}).Window(); got != "closed" {
		t.Errorf("closed day Window() = %q, want %q", got, "closed")
	}
	open := DayHours{Open: true, OpensAt: 11 * 60, ClosesAt: 19*60 + 30}
	if got := open.Window(); got != "11:00-19:30" {
		t.Errorf("Window() = %q, want %q", got, "11:00-19:30")
	}
}
