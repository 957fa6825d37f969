package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	reserrors "bookline/internal/reservations/errors"
	"bookline/pkg/config"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

type mockStore struct {
	findPendingFunc    func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error)
	findUnnotifiedFunc func(ctx context.Context, from, to time.Time) ([]*model.Reservation, error)
	updateStatusFunc   func(ctx context.Context, id string, from, status string) error
	markNotifiedFunc   func(ctx context.Context, id string) error
}

func (m *mockStore) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	if m.findPendingFunc != nil {
		return m.findPendingFunc(ctx, cutoff)
	}
	return nil, nil
}

func (m *mockStore) FindUnnotifiedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Reservation, error) {
	if m.findUnnotifiedFunc != nil {
		return m.findUnnotifiedFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, id string, from, status string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, status)
	}
	return nil
}

func (m *mockStore) MarkNotified(ctx context.Context, id string) error {
	if m.markNotifiedFunc != nil {
		return m.markNotifiedFunc(ctx, id)
	}
	return nil
}

type mockSender struct {
	sendFunc func(ctx context.Context, intent model.NotificationIntent) error
	intents  []model.NotificationIntent
}

func (m *mockSender) Send(ctx context.Context, intent model.NotificationIntent) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, intent); err != nil {
			return err
		}
	}
	m.intents = append(m.intents, intent)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: "error", Format: logger.FormatJSON, Service: "test"}),
	}
}

func newTestScheduler(store ReservationStore, sender *mockSender, now time.Time) *Scheduler {
	s := NewScheduler(store, sender, testConfig())
	s.now = func() time.Time { return now }
	return s
}

func pendingReservation(id string, createdAt time.Time) *model.Reservation {
	return &model.Reservation{
		ID:           id,
		CustomerRef:  "+972501234567",
		CustomerName: "Dana Levi",
		ServiceName:  "Haircut",
		StartTime:    createdAt.Add(72 * time.Hour),
		DurationMin:  60,
		Status:       model.StatusPending,
		Origin:       model.OriginChat,
		CreatedAt:    createdAt,
	}
}

func TestTickAutoConfirmsStalePending(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	stale := pendingReservation("res-001", now.Add(-25*time.Hour))

	var updatedID, updatedFrom, updatedStatus string
	var gotCutoff time.Time
	store := &mockStore{
		findPendingFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
			gotCutoff = cutoff
			return []*model.Reservation{stale}, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, from, status string) error {
			updatedID, updatedFrom, updatedStatus = id, from, status
			return nil
		},
	}
	sender := &mockSender{}

	newTestScheduler(store, sender, now).Tick(context.Background())

	// Default threshold is 24 hours.
	if want := now.Add(-24 * time.Hour); !gotCutoff.Equal(want) {
		t.Errorf("cutoff = %s, want %s", gotCutoff, want)
	}
	if updatedID != "res-001" || updatedStatus != model.StatusConfirmed {
		t.Errorf("updated %s to %s, want res-001 to confirmed", updatedID, updatedStatus)
	}
	if updatedFrom != model.StatusPending {
		t.Errorf("status write predicated on %q, want pending", updatedFrom)
	}
	if len(sender.intents) != 1 {
		t.Fatalf("emitted %d intents, want 1", len(sender.intents))
	}
	if sender.intents[0].Kind != model.IntentConfirmation {
		t.Errorf("intent kind = %s, want confirmation", sender.intents[0].Kind)
	}
	if sender.intents[0].Reservation.Status != model.StatusConfirmed {
		t.Errorf("intent snapshot status = %s, want confirmed", sender.intents[0].Reservation.Status)
	}
}

func TestTickSendsReminderOnceViaNotifiedFlag(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	upcoming := pendingReservation("res-002", now.Add(-48*time.Hour))
	upcoming.Status = model.StatusConfirmed
	upcoming.StartTime = now.Add(23 * time.Hour)

	var marked []string
	store := &mockStore{
		findUnnotifiedFunc: func(ctx context.Context, from, to time.Time) ([]*model.Reservation, error) {
			if upcoming.Notified {
				return nil, nil
			}
			if upcoming.StartTime.Before(from) || !upcoming.StartTime.Before(to) {
				return nil, nil
			}
			return []*model.Reservation{upcoming}, nil
		},
		markNotifiedFunc: func(ctx context.Context, id string) error {
			marked = append(marked, id)
			upcoming.Notified = true
			return nil
		},
	}
	sender := &mockSender{}
	scheduler := newTestScheduler(store, sender, now)

	scheduler.Tick(context.Background())

	if len(sender.intents) != 1 || sender.intents[0].Kind != model.IntentReminder {
		t.Fatalf("first tick intents = %v, want one reminder", sender.intents)
	}
	if len(marked) != 1 || marked[0] != "res-002" {
		t.Fatalf("marked = %v, want [res-002]", marked)
	}

	// A second pass must not remind again.
	scheduler.Tick(context.Background())
	if len(sender.intents) != 1 {
		t.Errorf("second tick emitted %d extra intents", len(sender.intents)-1)
	}
}

func TestTickSkipsFlagWhenSendFails(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	upcoming := pendingReservation("res-003", now.Add(-48*time.Hour))
	upcoming.Status = model.StatusConfirmed
	upcoming.StartTime = now.Add(2 * time.Hour)

	var marked bool
	store := &mockStore{
		findUnnotifiedFunc: func(ctx context.Context, from, to time.Time) ([]*model.Reservation, error) {
			return []*model.Reservation{upcoming}, nil
		},
		markNotifiedFunc: func(ctx context.Context, id string) error {
			marked = true
			return nil
		},
	}
	sender := &mockSender{
		sendFunc: func(ctx context.Context, intent model.NotificationIntent) error {
			return errors.New("broker unavailable")
		},
	}

	newTestScheduler(store, sender, now).Tick(context.Background())

	if marked {
		t.Error("reservation marked notified although the reminder was never delivered")
	}
}

func TestTickAutoConfirmYieldsToConcurrentCancel(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	stale := pendingReservation("res-010", now.Add(-26*time.Hour))

	// The customer cancels after the scan returned the reservation but
	// before the scheduler writes. The store enforces the from predicate
	// the same way the compare-and-set query does.
	status := stale.Status
	store := &mockStore{
		findPendingFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
			out := []*model.Reservation{stale}
			status = model.StatusCancelled
			return out, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, from, next string) error {
			if status != from {
				return reserrors.ErrStaleStatus
			}
			status = next
			return nil
		},
	}
	sender := &mockSender{}

	newTestScheduler(store, sender, now).Tick(context.Background())

	if status != model.StatusCancelled {
		t.Fatalf("status = %s, the concurrent cancel must stand", status)
	}
	if len(sender.intents) != 0 {
		t.Errorf("emitted %d intents for a cancelled reservation, want 0", len(sender.intents))
	}
}

func TestTickIsolatesPerReservationFailures(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	first := pendingReservation("res-004", now.Add(-30*time.Hour))
	second := pendingReservation("res-005", now.Add(-30*time.Hour))

	var updated []string
	store := &mockStore{
		findPendingFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
			return []*model.Reservation{first, second}, nil
		},
		updateStatusFunc: func(ctx context.Context, id string, from, status string) error {
			if id == "res-004" {
				return errors.New("write conflict")
			}
			updated = append(updated, id)
			return nil
		},
	}
	sender := &mockSender{}

	newTestScheduler(store, sender, now).Tick(context.Background())

	if len(updated) != 1 || updated[0] != "res-005" {
		t.Fatalf("updated = %v, want [res-005] despite the earlier failure", updated)
	}
	if len(sender.intents) != 1 {
		t.Errorf("emitted %d intents, want 1 for the reservation that confirmed", len(sender.intents))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &mockStore{}
	sender := &mockSender{}
	scheduler := NewScheduler(store, sender, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
