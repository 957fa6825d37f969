package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"bookline/internal/availability"
	"bookline/internal/notify"
	reserrors "bookline/internal/reservations/errors"
	"bookline/internal/reservations/repository"
	"bookline/internal/reservations/validator"
	"bookline/pkg/config"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/model"
	"bookline/pkg/sanitizer"
)

// Transitions allowed out of each status. Re-setting the current status is
// accepted as a no-op; everything else is rejected here, nowhere else.
var allowedTransitions = map[string][]string{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCancelled},
	model.StatusCancelled: {},
}

type ReservationService interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	UpdateTime(ctx context.Context, id string, change *model.TimeChange) error
	SetStatus(ctx context.Context, id string, newStatus string) error
	MarkNotified(ctx context.Context, id string) error
	Query(ctx context.Context, filter repository.QueryFilter, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	lockRepo  repository.SlotLockRepository
	validator *validator.ReservationValidator
	sender    notify.Sender
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.SlotLockRepository,
	validator *validator.ReservationValidator,
	sender notify.Sender,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		sender:    sender,
		cfg:       cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, reservation *model.Reservation) error {
	s.applyDefaults(reservation)
	s.sanitize(reservation)

	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}
	if slotErr := s.validator.ValidateSlot(reservation.StartTime, reservation.DurationMin); slotErr != nil {
		return slotErr
	}

	// All writes touching one calendar day serialize on that day's
	// advisory lock, so the conflict check and the insert cannot
	// interleave with a competing booking.
	lockID, err := s.acquireDayLock(ctx, reservation.StartTime)
	if err != nil {
		return err
	}
	defer s.releaseDayLock(ctx, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkConflicts(sessCtx, reservation.StartTime, reservation.DurationMin, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation",
			"customer_ref", reservation.CustomerRef,
			"start_time", reservation.StartTime,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"customer_ref", reservation.CustomerRef,
		"service_name", reservation.ServiceName,
		"start_time", reservation.StartTime,
		"status", reservation.Status,
		"origin", reservation.Origin,
	)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "retrieve")
	}

	return reservation, nil
}

func (s *reservationService) UpdateTime(ctx context.Context, id string, change *model.TimeChange) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateRepoError(err, id, "check existence of")
	}

	if err := s.validator.ValidateTimeChange(change); err != nil {
		s.cfg.Log.Warn("Time change validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid time change", map[string]any{"error": err.Error()})
	}

	durationMin := existing.DurationMin
	if change.DurationMin != nil {
		durationMin = *change.DurationMin
	}

	if slotErr := s.validator.ValidateSlot(change.StartTime, durationMin); slotErr != nil {
		return slotErr
	}

	lockID, err := s.acquireDayLock(ctx, change.StartTime)
	if err != nil {
		return err
	}
	defer s.releaseDayLock(ctx, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkConflicts(sessCtx, change.StartTime, durationMin, id); err != nil {
			return err
		}
		if err := s.repo.UpdateTime(sessCtx, id, change.StartTime, durationMin); err != nil {
			return apperrors.Internal("Failed to update reservation time", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update reservation time", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation rescheduled",
		"id", id,
		"previous_start", existing.StartTime,
		"new_start", change.StartTime,
		"duration_min", durationMin,
	)
	return nil
}

func (s *reservationService) SetStatus(ctx context.Context, id string, newStatus string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if _, known := allowedTransitions[newStatus]; !known {
		return apperrors.InvalidInput(fmt.Sprintf("unknown status %q", newStatus))
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.translateRepoError(err, id, "check existence of")
	}

	if existing.Status == newStatus {
		return nil
	}
	if !transitionAllowed(existing.Status, newStatus) {
		return apperrors.InvalidTransition(existing.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, existing.Status, newStatus); err != nil {
		if errors.Is(err, reserrors.ErrStaleStatus) {
			s.cfg.Log.Warn("Lost status race to a concurrent writer",
				"id", id,
				"expected", existing.Status,
				"requested", newStatus,
			)
			return apperrors.Conflict("Reservation was modified by another request. Please retry.")
		}
		s.cfg.Log.Error("Failed to update reservation status", "id", id, "error", err)
		return s.translateRepoError(err, id, "update status of")
	}

	s.cfg.Log.Info("Reservation status changed",
		"id", id,
		"from", existing.Status,
		"to", newStatus,
	)

	s.emitStatusIntent(ctx, existing, newStatus)
	return nil
}

func (s *reservationService) MarkNotified(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	if err := s.repo.MarkNotified(ctx, id); err != nil {
		return s.translateRepoError(err, id, "mark notified")
	}
	return nil
}

func (s *reservationService) Query(ctx context.Context, filter repository.QueryFilter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	for _, status := range filter.Statuses {
		if _, known := allowedTransitions[status]; !known {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown status %q", status))
		}
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByFilter(sharedCtx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", err)
			errCount = apperrors.Internal("Failed to count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.Query(sharedCtx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to query reservations",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to query reservations", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

// --- Helpers ---

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *reservationService) applyDefaults(r *model.Reservation) {
	if r.Status == "" {
		r.Status = model.StatusPending
	}
	if r.DurationMin == 0 {
		r.DurationMin = s.cfg.DefaultDurationMin
	}
	if r.Origin == "" {
		r.Origin = model.OriginChat
	}
}

func (s *reservationService) sanitize(r *model.Reservation) {
	r.CustomerName = sanitizer.NormalizeName(r.CustomerName)
	r.ServiceName = sanitizer.NormalizeServiceName(r.ServiceName)
	r.CustomerRef = sanitizer.NormalizeContactRef(r.CustomerRef)
}

// checkConflicts loads the active reservations around the candidate's day
// and rejects if any interval overlaps. The window pre-filter is an
// efficiency bound only; no admissible appointment outlives it.
func (s *reservationService) checkConflicts(ctx context.Context, start time.Time, durationMin int, excludeID string) error {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	active, err := s.repo.FindActiveInWindow(ctx, dayStart.AddDate(0, 0, -1), dayStart.AddDate(0, 0, 2))
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	if conflicting := availability.FindConflict(start, durationMin, active, excludeID); conflicting != nil {
		return apperrors.SchedulingConflict(conflicting.Summary())
	}
	return nil
}

func (s *reservationService) emitStatusIntent(ctx context.Context, reservation *model.Reservation, newStatus string) {
	kind := model.IntentConfirmation
	if newStatus == model.StatusCancelled {
		kind = model.IntentCancellation
	}

	snapshot := reservation.Summary()
	snapshot.Status = newStatus

	intent := model.NotificationIntent{
		Kind:        kind,
		Recipient:   model.RecipientCustomer,
		ContactRef:  reservation.CustomerRef,
		Reservation: snapshot,
		OccurredAt:  time.Now().UTC(),
	}

	// Deliverability never affects the state change; a dropped intent is
	// logged and the customer can still be reached manually.
	if err := s.sender.Send(ctx, intent); err != nil {
		s.cfg.Log.Error("Failed to emit notification intent",
			"kind", kind,
			"reservation_id", reservation.ID,
			"error", err,
		)
	}
}

func (s *reservationService) translateRepoError(err error, id, action string) error {
	if errors.Is(err, reserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Reservation", id)
	}
	if errors.Is(err, reserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid reservation ID format")
	}
	return apperrors.Internal(fmt.Sprintf("Failed to %s reservation", action), err)
}

// acquireDayLock takes the advisory lock for the calendar day the write
// touches. A duplicate key insert means another writer holds it; callers
// get a retryable conflict rather than a silent double-booking.
func (s *reservationService) acquireDayLock(ctx context.Context, start time.Time) (string, error) {
	lockID := fmt.Sprintf("day_lock_%s", start.Format("2006-01-02"))

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if errors.Is(err, reserrors.ErrLockHeld) {
			return "", apperrors.Conflict("Another booking for this day is being processed. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func (s *reservationService) releaseDayLock(ctx context.Context, lockID string) {
	if err := s.lockRepo.Delete(ctx, lockID); err != nil {
		s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", err)
	}
}
