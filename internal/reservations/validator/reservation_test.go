package validator

import (
	"testing"
	"time"

	"bookline/internal/calendar"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.FormatJSON,
		Service: "test",
	})
}

func newTestValidator(t *testing.T, now time.Time) *ReservationValidator {
	t.Helper()
	cal, err := calendar.New([7]string{
		"closed",
		"11:00-19:00",
		"11:00-19:00",
		"11:00-19:00",
		"11:00-19:00",
		"11:00-19:00",
		"10:00-16:00",
	})
	if err != nil {
		t.Fatalf("calendar.New() returned error: %v", err)
	}
	v := NewReservationValidator(cal, 365*24*time.Hour, testLogger())
	v.now = func() time.Time { return now }
	return v
}

func TestValidateSlot(t *testing.T) {
	// A Friday, well inside business hours, used as "now".
	now := time.Date(2026, time.September, 4, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC)

	v := newTestValidator(t, now)

	tests := []struct {
		name        string
		start       time.Time
		durationMin int
		wantCode    string
	}{
		{
			name:        "valid mid-day slot",
			start:       monday.Add(14 * time.Hour),
			durationMin: 60,
		},
		{
			name:        "ends exactly at closing",
			start:       monday.Add(18 * time.Hour),
			durationMin: 60,
		},
		{
			name:        "would end one minute past closing",
			start:       monday.Add(18*time.Hour + 1*time.Minute),
			durationMin: 60,
			wantCode:    apperrors.CodeOutOfHours,
		},
		{
			name:        "ends after closing",
			start:       monday.Add(18*time.Hour + 30*time.Minute),
			durationMin: 60,
			wantCode:    apperrors.CodeOutOfHours,
		},
		{
			name:        "before opening",
			start:       monday.Add(10 * time.Hour),
			durationMin: 30,
			wantCode:    apperrors.CodeOutOfHours,
		},
		{
			name:        "closed weekday at any hour",
			start:       sunday.Add(13 * time.Hour),
			durationMin: 30,
			wantCode:    apperrors.CodeOutOfHours,
		},
		{
			name:        "in the past",
			start:       now.Add(-1 * time.Hour),
			durationMin: 60,
			wantCode:    apperrors.CodeInvalidInput,
		},
		{
			name:        "exactly now is not strictly future",
			start:       now,
			durationMin: 60,
			wantCode:    apperrors.CodeInvalidInput,
		},
		{
			name:        "more than a year ahead",
			start:       now.AddDate(1, 0, 7).Truncate(time.Hour).Add(14 * time.Hour),
			durationMin: 60,
			wantCode:    apperrors.CodeInvalidInput,
		},
		{
			name:        "zero duration",
			start:       monday.Add(14 * time.Hour),
			durationMin: 0,
			wantCode:    apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSlot(tt.start, tt.durationMin)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateSlot() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateSlot() = nil, want code %s", tt.wantCode)
			}
			if err.Code != tt.wantCode {
				t.Errorf("ValidateSlot() code = %s, want %s", err.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateSlotClosedDayNamesWeekday(t *testing.T) {
	now := time.Date(2026, time.September, 4, 9, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)

	sunday := time.Date(2026, time.September, 6, 13, 0, 0, 0, time.UTC)
	err := v.ValidateSlot(sunday, 60)
	if err == nil {
		t.Fatal("ValidateSlot() accepted a closed day")
	}
	if err.Details["weekday"] != "Sunday" {
		t.Errorf("details weekday = %v, want Sunday", err.Details["weekday"])
	}
}

func TestValidateSlotLateStartReportsLatestBookable(t *testing.T) {
	now := time.Date(2026, time.September, 4, 9, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)

	start := time.Date(2026, time.September, 7, 18, 30, 0, 0, time.UTC)
	err := v.ValidateSlot(start, 60)
	if err == nil {
		t.Fatal("ValidateSlot() accepted a slot ending past closing")
	}
	if err.Details["latest_start"] != "18:00" {
		t.Errorf("details latest_start = %v, want 18:00", err.Details["latest_start"])
	}
}

func TestValidateReservationFields(t *testing.T) {
	now := time.Date(2026, time.September, 4, 9, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)

	valid := &model.Reservation{
		CustomerRef:  "+972501234567",
		CustomerName: "Dana Levi",
		ServiceName:  "Haircut",
		StartTime:    now.AddDate(0, 0, 3).Add(14 * time.Hour),
		DurationMin:  60,
		Status:       model.StatusPending,
		Origin:       model.OriginChat,
	}
	if err := v.Validate(valid); err != nil {
		t.Fatalf("Validate() rejected a valid reservation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *model.Reservation)
	}{
		{"missing customer ref", func(r *model.Reservation) { r.CustomerRef = "" }},
		{"missing service name", func(r *model.Reservation) { r.ServiceName = "" }},
		{"unknown status", func(r *model.Reservation) { r.Status = "waitlisted" }},
		{"unknown origin", func(r *model.Reservation) { r.Origin = "carrier-pigeon" }},
		{"duration below minimum", func(r *model.Reservation) { r.DurationMin = 1 }},
		{"duration above maximum", func(r *model.Reservation) { r.DurationMin = 600 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := *valid
			tt.mutate(&r)
			if err := v.Validate(&r); err == nil {
				t.Error("Validate() accepted an invalid reservation")
			}
		})
	}
}
