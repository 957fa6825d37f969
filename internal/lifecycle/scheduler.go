// Package lifecycle runs the periodic pass that moves reservations through
// their lifecycle without human input: stale pending bookings get confirmed,
// and upcoming bookings get a reminder exactly once.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"bookline/internal/notify"
	reserrors "bookline/internal/reservations/errors"
	"bookline/pkg/config"
	"bookline/pkg/model"
)

// ReservationStore is the slice of the reservations repository the
// scheduler needs. Status writes go through here directly; the only
// transition the scheduler performs is pending to confirmed, and the
// from argument makes the write miss if someone changed the status
// between the scan and the write.
type ReservationStore interface {
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error)
	FindUnnotifiedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, from, status string) error
	MarkNotified(ctx context.Context, id string) error
}

type Scheduler struct {
	store  ReservationStore
	sender notify.Sender
	cfg    *config.Config

	now func() time.Time
}

func NewScheduler(store ReservationStore, sender notify.Sender, cfg *config.Config) *Scheduler {
	return &Scheduler{
		store:  store,
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run ticks until the context is cancelled. The interval is re-read every
// round, so operators can slow the loop down or speed it up live.
func (s *Scheduler) Run(ctx context.Context) {
	s.cfg.Log.Info("Lifecycle scheduler started")

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			s.cfg.Log.Info("Lifecycle scheduler stopped", "reason", ctx.Err())
			return
		case <-time.After(s.cfg.Tunables().LifecycleTick):
		}
	}
}

// Tick performs one full pass. Failures on one reservation are logged and
// never stop the rest of the batch; the next tick picks the stragglers up
// again.
func (s *Scheduler) Tick(ctx context.Context) {
	knobs := s.cfg.Tunables()
	now := s.now().UTC()

	s.autoConfirm(ctx, now, knobs.AutoConfirmAfter)
	s.remind(ctx, now, knobs.ReminderLookahead)
}

func (s *Scheduler) autoConfirm(ctx context.Context, now time.Time, after time.Duration) {
	stale, err := s.store.FindPendingCreatedBefore(ctx, now.Add(-after))
	if err != nil {
		s.cfg.Log.Error("Failed to load stale pending reservations", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	confirmed := 0
	for _, reservation := range stale {
		err := s.store.UpdateStatus(ctx, reservation.ID, model.StatusPending, model.StatusConfirmed)
		if errors.Is(err, reserrors.ErrStaleStatus) {
			// Someone cancelled or confirmed it after the scan. Their
			// write wins; confirming here would resurrect a cancellation.
			s.cfg.Log.Info("Skipping auto-confirm, status changed since scan",
				"id", reservation.ID,
			)
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to auto-confirm reservation",
				"id", reservation.ID,
				"error", err,
			)
			continue
		}
		confirmed++

		s.emit(ctx, reservation, model.IntentConfirmation, model.StatusConfirmed)
	}

	s.cfg.Log.Info("Auto-confirm pass finished",
		"candidates", len(stale),
		"confirmed", confirmed,
		"threshold", after,
	)
}

func (s *Scheduler) remind(ctx context.Context, now time.Time, lookahead time.Duration) {
	upcoming, err := s.store.FindUnnotifiedStartingBetween(ctx, now, now.Add(lookahead))
	if err != nil {
		s.cfg.Log.Error("Failed to load upcoming reservations", "error", err)
		return
	}
	if len(upcoming) == 0 {
		return
	}

	reminded := 0
	for _, reservation := range upcoming {
		// The flag is only set after the intent goes out, so a failed
		// send is retried on the next tick rather than lost.
		if !s.emit(ctx, reservation, model.IntentReminder, reservation.Status) {
			continue
		}
		if err := s.store.MarkNotified(ctx, reservation.ID); err != nil {
			s.cfg.Log.Error("Failed to mark reservation as notified",
				"id", reservation.ID,
				"error", err,
			)
			continue
		}
		reminded++
	}

	s.cfg.Log.Info("Reminder pass finished",
		"candidates", len(upcoming),
		"reminded", reminded,
		"lookahead", lookahead,
	)
}

func (s *Scheduler) emit(ctx context.Context, reservation *model.Reservation, kind string, status string) bool {
	snapshot := reservation.Summary()
	snapshot.Status = status

	intent := model.NotificationIntent{
		Kind:        kind,
		Recipient:   model.RecipientCustomer,
		ContactRef:  reservation.CustomerRef,
		Reservation: snapshot,
		OccurredAt:  s.now().UTC(),
	}

	if err := s.sender.Send(ctx, intent); err != nil {
		s.cfg.Log.Error("Failed to emit notification intent",
			"kind", kind,
			"reservation_id", reservation.ID,
			"error", err,
		)
		return false
	}
	return true
}
