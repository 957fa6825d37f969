package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bookline/internal/calendar"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ReservationValidator combines struct-level field validation with the slot
// checks that decide whether a (start, duration) pair is bookable at all.
// It holds no reservation state and performs no I/O.
type ReservationValidator struct {
	validate       *validator.Validate
	cal            *calendar.Calendar
	maxBookingLead time.Duration
	logger         *logger.Logger

	now func() time.Time
}

func NewReservationValidator(cal *calendar.Calendar, maxBookingLead time.Duration, log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate:       v,
		cal:            cal,
		maxBookingLead: maxBookingLead,
		logger:         log,
		now:            time.Now,
	}
}

// Validate checks a reservation's fields. Slot feasibility is a separate
// concern, see ValidateSlot.
func (v *ReservationValidator) Validate(r *model.Reservation) error {
	if err := v.validate.Struct(r); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateTimeChange checks a reschedule payload's fields.
func (v *ReservationValidator) ValidateTimeChange(change *model.TimeChange) error {
	if err := v.validate.Struct(change); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateSlot decides whether an appointment of durationMin starting at
// start fits the business calendar. Checks run in order and stop at the
// first failure:
//
//  1. start is strictly in the future
//  2. start is not further out than the booking lead limit
//  3. the weekday is open
//  4. start is not before opening
//  5. start+duration does not pass closing (ending exactly at closing
//     time is valid)
//
// Every failure names the boundary that was violated and, where one
// exists, the nearest valid alternative.
func (v *ReservationValidator) ValidateSlot(start time.Time, durationMin int) *apperrors.AppError {
	if durationMin <= 0 {
		return apperrors.InvalidInput("duration must be a positive number of minutes")
	}

	now := v.now()
	if !start.After(now) {
		return apperrors.InvalidInput("start time must be in the future")
	}
	if start.After(now.Add(v.maxBookingLead)) {
		return apperrors.InvalidInput(fmt.Sprintf("start time is too far in the future, bookings open up to %s ahead", v.maxBookingLead))
	}

	hours := v.cal.HoursFor(start)
	weekday := start.Weekday().String()
	if !hours.Open {
		return apperrors.OutOfHours(
			fmt.Sprintf("we are closed on %s", weekday),
			map[string]any{
				"weekday": weekday,
			},
		)
	}

	startMin := calendar.MinutesIntoDay(start)
	if startMin < hours.OpensAt {
		return apperrors.OutOfHours(
			fmt.Sprintf("%s opens at %s", weekday, calendar.FormatMinutes(hours.OpensAt)),
			map[string]any{
				"weekday":  weekday,
				"window":   hours.Window(),
				"opens_at": calendar.FormatMinutes(hours.OpensAt),
			},
		)
	}

	if startMin+durationMin > hours.ClosesAt {
		latestStart := hours.ClosesAt - durationMin
		details := map[string]any{
			"weekday":   weekday,
			"window":    hours.Window(),
			"closes_at": calendar.FormatMinutes(hours.ClosesAt),
		}
		if latestStart >= hours.OpensAt {
			details["latest_start"] = calendar.FormatMinutes(latestStart)
		}
		return apperrors.OutOfHours(
			fmt.Sprintf("a %d-minute appointment at %s would end after closing time %s", durationMin, calendar.FormatMinutes(startMin), calendar.FormatMinutes(hours.ClosesAt)),
			details,
		)
	}

	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
