package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"bookline/internal/calendar"
	reserrors "bookline/internal/reservations/errors"
	"bookline/internal/reservations/repository"
	"bookline/internal/reservations/validator"
	"bookline/pkg/config"
	mongotx "bookline/pkg/db/mongo"
	apperrors "bookline/pkg/errors"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

// In-memory repository standing in for Mongo. Not safe for parallel use;
// the tests drive it sequentially, like the day lock would in production.
type memoryRepository struct {
	reservations map[string]*model.Reservation
	nextID       int

	// Runs between the service's read and its status write, standing in
	// for a concurrent writer.
	beforeUpdateStatus func()
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{reservations: map[string]*model.Reservation{}}
}

func (m *memoryRepository) Create(ctx context.Context, r *model.Reservation) error {
	m.nextID++
	r.ID = fmt.Sprintf("res-%03d", m.nextID)
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	clone := *r
	m.reservations[r.ID] = &clone
	return nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, reserrors.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memoryRepository) FindActiveInWindow(ctx context.Context, from, to time.Time) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range m.reservations {
		if !r.IsActive() {
			continue
		}
		if r.StartTime.Before(to) && r.EndTime().After(from) {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memoryRepository) Query(ctx context.Context, filter repository.QueryFilter, limit int, offset int64) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range m.reservations {
		if matches(r, filter) {
			clone := *r
			out = append(out, &clone)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartTime.Before(out[i].StartTime) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func matches(r *model.Reservation, filter repository.QueryFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if r.Status == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if filter.CustomerRef != "" && r.CustomerRef != filter.CustomerRef {
		return false
	}
	if filter.From != nil && r.StartTime.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !r.StartTime.Before(*filter.To) {
		return false
	}
	return true
}

func (m *memoryRepository) CountByFilter(ctx context.Context, filter repository.QueryFilter) (int64, error) {
	var count int64
	for _, r := range m.reservations {
		if matches(r, filter) {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepository) UpdateTime(ctx context.Context, id string, start time.Time, durationMin int) error {
	r, ok := m.reservations[id]
	if !ok {
		return reserrors.ErrNotFound
	}
	r.StartTime = start
	r.DurationMin = durationMin
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryRepository) UpdateStatus(ctx context.Context, id string, from, status string) error {
	if m.beforeUpdateStatus != nil {
		m.beforeUpdateStatus()
	}
	r, ok := m.reservations[id]
	if !ok {
		return reserrors.ErrNotFound
	}
	if r.Status != from {
		return reserrors.ErrStaleStatus
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryRepository) MarkNotified(ctx context.Context, id string) error {
	r, ok := m.reservations[id]
	if !ok {
		return reserrors.ErrNotFound
	}
	r.Notified = true
	return nil
}

func (m *memoryRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range m.reservations {
		if r.Status == model.StatusPending && r.CreatedAt.Before(cutoff) {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memoryRepository) FindUnnotifiedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for _, r := range m.reservations {
		if r.IsActive() && !r.Notified && !r.StartTime.Before(from) && r.StartTime.Before(to) {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memoryRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type memoryLockRepository struct {
	held map[string]bool
}

func (m *memoryLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[lock.ID] {
		return nil, reserrors.ErrLockHeld
	}
	m.held[lock.ID] = true
	return lock, nil
}

func (m *memoryLockRepository) Delete(ctx context.Context, lockID string) error {
	delete(m.held, lockID)
	return nil
}

type recordingSender struct {
	intents []model.NotificationIntent
}

func (r *recordingSender) Send(ctx context.Context, intent model.NotificationIntent) error {
	r.intents = append(r.intents, intent)
	return nil
}

type fixture struct {
	svc    ReservationService
	repo   *memoryRepository
	locks  *memoryLockRepository
	sender *recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: logger.FormatJSON, Service: "test"})
	cfg := &config.Config{
		Log:                log,
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		DefaultDurationMin: 60,
		SlotLockTTL:        10 * time.Second,
	}

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

	repo := newMemoryRepository()
	locks := &memoryLockRepository{}
	sender := &recordingSender{}
	v := validator.NewReservationValidator(cal, 365*24*time.Hour, log)

	return &fixture{
		svc:    NewReservationService(repo, locks, v, sender, cfg),
		repo:   repo,
		locks:  locks,
		sender: sender,
	}
}

// nextWeekday returns the next future occurrence of the weekday at
// midnight UTC, at least two days out so slot validation never trips over
// "must be in the future".
func nextWeekday(day time.Weekday) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 2)
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func newReservation(start time.Time, durationMin int, status string) *model.Reservation {
	return &model.Reservation{
		CustomerRef:  "+972501234567",
		CustomerName: "Dana Levi",
		ServiceName:  "Haircut",
		StartTime:    start,
		DurationMin:  durationMin,
		Status:       status,
		Origin:       model.OriginChat,
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	existing := newReservation(monday.Add(14*time.Hour), 60, model.StatusConfirmed)
	existing.CustomerName = "Noa Katz"
	if err := f.svc.Create(ctx, existing); err != nil {
		t.Fatalf("seeding reservation failed: %v", err)
	}

	err := f.svc.Create(ctx, newReservation(monday.Add(14*time.Hour+30*time.Minute), 30, model.StatusPending))
	if got := appCode(t, err); got != apperrors.CodeSchedulingConflict {
		t.Fatalf("Create() code = %s, want %s", got, apperrors.CodeSchedulingConflict)
	}

	appErr := err.(*apperrors.AppError)
	if appErr.Details["conflicting_id"] != existing.ID {
		t.Errorf("conflict details reference %v, want %s", appErr.Details["conflicting_id"], existing.ID)
	}
	if appErr.Details["customer_name"] != "Noa Katz" {
		t.Errorf("conflict details customer = %v, want Noa Katz", appErr.Details["customer_name"])
	}
}

func TestCreateRejectsSlotEndingAfterClose(t *testing.T) {
	f := newFixture(t)
	monday := nextWeekday(time.Monday)

	err := f.svc.Create(context.Background(), newReservation(monday.Add(18*time.Hour+30*time.Minute), 60, model.StatusPending))
	if got := appCode(t, err); got != apperrors.CodeOutOfHours {
		t.Fatalf("Create() code = %s, want %s", got, apperrors.CodeOutOfHours)
	}
}

func TestCreateAcceptsSlotEndingExactlyAtClose(t *testing.T) {
	f := newFixture(t)
	monday := nextWeekday(time.Monday)

	if err := f.svc.Create(context.Background(), newReservation(monday.Add(18*time.Hour), 60, model.StatusPending)); err != nil {
		t.Fatalf("Create() at the closing boundary failed: %v", err)
	}
}

func TestCreateRejectsClosedSunday(t *testing.T) {
	f := newFixture(t)
	sunday := nextWeekday(time.Sunday)

	err := f.svc.Create(context.Background(), newReservation(sunday.Add(13*time.Hour), 60, model.StatusPending))
	if got := appCode(t, err); got != apperrors.CodeOutOfHours {
		t.Fatalf("Create() code = %s, want %s", got, apperrors.CodeOutOfHours)
	}
	if details := err.(*apperrors.AppError).Details; details["weekday"] != "Sunday" {
		t.Errorf("details weekday = %v, want Sunday", details["weekday"])
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	monday := nextWeekday(time.Monday)

	r := newReservation(monday.Add(12*time.Hour), 0, "")
	r.DurationMin = 0
	r.Origin = ""
	if err := f.svc.Create(context.Background(), r); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if r.Status != model.StatusPending {
		t.Errorf("default status = %s, want pending", r.Status)
	}
	if r.DurationMin != 60 {
		t.Errorf("default duration = %d, want 60", r.DurationMin)
	}
	if r.Origin != model.OriginChat {
		t.Errorf("default origin = %s, want chat", r.Origin)
	}
}

func TestCreateWhileDayLockHeld(t *testing.T) {
	f := newFixture(t)
	monday := nextWeekday(time.Monday)

	f.locks.held = map[string]bool{
		fmt.Sprintf("day_lock_%s", monday.Format("2006-01-02")): true,
	}

	err := f.svc.Create(context.Background(), newReservation(monday.Add(12*time.Hour), 60, model.StatusPending))
	if got := appCode(t, err); got != apperrors.CodeConflict {
		t.Fatalf("Create() code = %s, want %s", got, apperrors.CodeConflict)
	}
	if len(f.repo.reservations) != 0 {
		t.Error("reservation was written despite a held lock")
	}
}

func TestCancelledReservationFreesItsSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	first := newReservation(monday.Add(14*time.Hour), 60, model.StatusConfirmed)
	if err := f.svc.Create(ctx, first); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := f.svc.SetStatus(ctx, first.ID, model.StatusCancelled); err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}

	if err := f.svc.Create(ctx, newReservation(monday.Add(14*time.Hour), 60, model.StatusPending)); err != nil {
		t.Fatalf("Create() in a cancelled slot failed: %v", err)
	}
}

func TestUpdateTimeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)
	originalStart := monday.Add(14 * time.Hour)

	r := newReservation(originalStart, 60, model.StatusConfirmed)
	if err := f.svc.Create(ctx, r); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := f.svc.UpdateTime(ctx, r.ID, &model.TimeChange{StartTime: monday.Add(16 * time.Hour)}); err != nil {
		t.Fatalf("UpdateTime() failed: %v", err)
	}
	if err := f.svc.UpdateTime(ctx, r.ID, &model.TimeChange{StartTime: originalStart}); err != nil {
		t.Fatalf("UpdateTime() back to the original slot failed: %v", err)
	}

	stored, err := f.svc.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if !stored.StartTime.Equal(originalStart) {
		t.Errorf("start time = %s, want %s", stored.StartTime, originalStart)
	}
}

func TestUpdateTimeDoesNotConflictWithItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	r := newReservation(monday.Add(14*time.Hour), 60, model.StatusConfirmed)
	if err := f.svc.Create(ctx, r); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// Shift by half a slot; the new interval overlaps the old one, which
	// must be excluded from the conflict scan.
	if err := f.svc.UpdateTime(ctx, r.ID, &model.TimeChange{StartTime: monday.Add(14*time.Hour + 30*time.Minute)}); err != nil {
		t.Fatalf("UpdateTime() conflicted with the reservation being moved: %v", err)
	}
}

func TestUpdateTimeLeavesRecordUntouchedOnConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	blocker := newReservation(monday.Add(16*time.Hour), 60, model.StatusConfirmed)
	if err := f.svc.Create(ctx, blocker); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	victim := newReservation(monday.Add(12*time.Hour), 60, model.StatusConfirmed)
	if err := f.svc.Create(ctx, victim); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	err := f.svc.UpdateTime(ctx, victim.ID, &model.TimeChange{StartTime: monday.Add(16*time.Hour + 30*time.Minute)})
	if got := appCode(t, err); got != apperrors.CodeSchedulingConflict {
		t.Fatalf("UpdateTime() code = %s, want %s", got, apperrors.CodeSchedulingConflict)
	}

	stored, _ := f.svc.GetByID(ctx, victim.ID)
	if !stored.StartTime.Equal(monday.Add(12 * time.Hour)) {
		t.Errorf("record changed despite rejected update: start = %s", stored.StartTime)
	}
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		wantCode string
	}{
		{"pending to confirmed", model.StatusPending, model.StatusConfirmed, ""},
		{"pending to cancelled", model.StatusPending, model.StatusCancelled, ""},
		{"confirmed to cancelled", model.StatusConfirmed, model.StatusCancelled, ""},
		{"cancelled to confirmed", model.StatusCancelled, model.StatusConfirmed, apperrors.CodeInvalidTransition},
		{"cancelled to pending", model.StatusCancelled, model.StatusPending, apperrors.CodeInvalidTransition},
		{"confirmed to pending", model.StatusConfirmed, model.StatusPending, apperrors.CodeInvalidTransition},
		{"same state is a no-op", model.StatusConfirmed, model.StatusConfirmed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			monday := nextWeekday(time.Monday)

			r := newReservation(monday.Add(14*time.Hour), 60, model.StatusPending)
			if err := f.svc.Create(ctx, r); err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			f.repo.reservations[r.ID].Status = tt.from

			err := f.svc.SetStatus(ctx, r.ID, tt.to)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("SetStatus(%s -> %s) failed: %v", tt.from, tt.to, err)
				}
				return
			}
			if got := appCode(t, err); got != tt.wantCode {
				t.Errorf("SetStatus(%s -> %s) code = %s, want %s", tt.from, tt.to, got, tt.wantCode)
			}
		})
	}
}

func TestSetStatusEmitsIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	r := newReservation(monday.Add(14*time.Hour), 60, model.StatusPending)
	if err := f.svc.Create(ctx, r); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := f.svc.SetStatus(ctx, r.ID, model.StatusConfirmed); err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}
	if len(f.sender.intents) != 1 {
		t.Fatalf("emitted %d intents, want 1", len(f.sender.intents))
	}
	if f.sender.intents[0].Kind != model.IntentConfirmation {
		t.Errorf("intent kind = %s, want confirmation", f.sender.intents[0].Kind)
	}

	if err := f.svc.SetStatus(ctx, r.ID, model.StatusCancelled); err != nil {
		t.Fatalf("SetStatus() failed: %v", err)
	}
	if len(f.sender.intents) != 2 || f.sender.intents[1].Kind != model.IntentCancellation {
		t.Errorf("expected a cancellation intent after cancelling")
	}

	// Re-cancelling is a no-op and must not notify again.
	if err := f.svc.SetStatus(ctx, r.ID, model.StatusCancelled); err != nil {
		t.Fatalf("idempotent SetStatus() failed: %v", err)
	}
	if len(f.sender.intents) != 2 {
		t.Errorf("no-op transition emitted an intent")
	}
}

func TestSetStatusLosesRaceToConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	r := newReservation(monday.Add(14*time.Hour), 60, model.StatusPending)
	if err := f.svc.Create(ctx, r); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// Another writer cancels between the service's read and its write.
	f.repo.beforeUpdateStatus = func() {
		f.repo.reservations[r.ID].Status = model.StatusCancelled
		f.repo.beforeUpdateStatus = nil
	}

	err := f.svc.SetStatus(ctx, r.ID, model.StatusConfirmed)
	if got := appCode(t, err); got != apperrors.CodeConflict {
		t.Errorf("SetStatus() code = %s, want %s", got, apperrors.CodeConflict)
	}
	if got := f.repo.reservations[r.ID].Status; got != model.StatusCancelled {
		t.Errorf("stored status = %s, the concurrent cancel must stand", got)
	}
	if len(f.sender.intents) != 0 {
		t.Errorf("emitted %d intents for a write that lost the race, want 0", len(f.sender.intents))
	}
}

func TestSetStatusUnknownID(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetStatus(context.Background(), "res-999", model.StatusConfirmed)
	if got := appCode(t, err); got != apperrors.CodeNotFound {
		t.Errorf("SetStatus() code = %s, want %s", got, apperrors.CodeNotFound)
	}
}

func TestQueryFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	late := newReservation(monday.Add(16*time.Hour), 60, model.StatusConfirmed)
	early := newReservation(monday.Add(11*time.Hour), 60, model.StatusConfirmed)
	other := newReservation(monday.Add(13*time.Hour), 60, model.StatusPending)
	other.CustomerRef = "+972509999999"

	for _, r := range []*model.Reservation{late, early, other} {
		if err := f.svc.Create(ctx, r); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	got, count, err := f.svc.Query(ctx, repository.QueryFilter{
		Statuses:    []string{model.StatusConfirmed},
		CustomerRef: "+972501234567",
	}, 10, 0)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if count != 2 || len(got) != 2 {
		t.Fatalf("Query() = %d results (count %d), want 2", len(got), count)
	}
	if !got[0].StartTime.Before(got[1].StartTime) {
		t.Error("results not sorted by start time ascending")
	}
}

func TestQueryRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Query(context.Background(), repository.QueryFilter{Statuses: []string{"waitlisted"}}, 10, 0)
	if got := appCode(t, err); got != apperrors.CodeInvalidInput {
		t.Errorf("Query() code = %s, want %s", got, apperrors.CodeInvalidInput)
	}
}

// Property: however a sequence of booking attempts lands, no two active
// reservations ever overlap.
func TestActiveIntervalsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	monday := nextWeekday(time.Monday)

	rng := rand.New(rand.NewSource(42))
	durations := []int{30, 60, 90}

	for i := 0; i < 200; i++ {
		startMin := 11*60 + rng.Intn(8*60)
		startMin -= startMin % 15
		duration := durations[rng.Intn(len(durations))]

		r := newReservation(monday.Add(time.Duration(startMin)*time.Minute), duration, model.StatusPending)
		err := f.svc.Create(ctx, r)
		if err == nil && rng.Intn(4) == 0 {
			_ = f.svc.SetStatus(ctx, r.ID, model.StatusCancelled)
		}
	}

	var active []*model.Reservation
	for _, r := range f.repo.reservations {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		t.Fatal("expected at least one accepted reservation")
	}

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].Overlaps(active[j].StartTime, active[j].EndTime()) {
				t.Fatalf("active reservations %s and %s overlap", active[i].ID, active[j].ID)
			}
		}
	}
}
