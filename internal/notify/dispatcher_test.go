package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookline/pkg/kafka"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

type mockChannel struct {
	deliverFunc func(ctx context.Context, intent model.NotificationIntent) error
	delivered   []model.NotificationIntent
}

func (m *mockChannel) Deliver(ctx context.Context, intent model.NotificationIntent) error {
	if m.deliverFunc != nil {
		if err := m.deliverFunc(ctx, intent); err != nil {
			return err
		}
	}
	m.delivered = append(m.delivered, intent)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.FormatJSON, Service: "test"})
}

func testIntent() model.NotificationIntent {
	return model.NotificationIntent{
		Kind:       model.IntentReminder,
		Recipient:  model.RecipientCustomer,
		ContactRef: "+972501234567",
		Reservation: model.Summary{
			ID:           "res-001",
			CustomerName: "Dana Levi",
			ServiceName:  "Haircut",
			StartTime:    time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC),
			DurationMin:  60,
			Status:       model.StatusConfirmed,
		},
		OccurredAt: time.Date(2026, 9, 6, 14, 0, 0, 0, time.UTC),
	}
}

func TestHandleDeliversDecodedIntent(t *testing.T) {
	channel := &mockChannel{}
	dispatcher := NewDispatcher(channel, testLogger())

	msg := kafka.NewMessage().
		WithKey("+972501234567").
		WithValue(testIntent()).
		WithEventType(EventReservationReminder).
		Build()

	if err := dispatcher.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle() returned error: %v", err)
	}
	if len(channel.delivered) != 1 {
		t.Fatalf("delivered %d intents, want 1", len(channel.delivered))
	}
	if got := channel.delivered[0]; got.Kind != model.IntentReminder || got.Reservation.ID != "res-001" {
		t.Errorf("delivered intent = %+v, want reminder for res-001", got)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	channel := &mockChannel{}
	dispatcher := NewDispatcher(channel, testLogger())

	msg := kafka.NewMessage().WithRawValue([]byte("{not json")).Build()

	if err := dispatcher.Handle(context.Background(), msg); err == nil {
		t.Fatal("Handle() accepted a malformed payload")
	}
	if len(channel.delivered) != 0 {
		t.Error("malformed payload reached the channel")
	}
}

func TestHandleRejectsIncompleteIntent(t *testing.T) {
	channel := &mockChannel{}
	dispatcher := NewDispatcher(channel, testLogger())

	intent := testIntent()
	intent.ContactRef = ""
	msg := kafka.NewMessage().WithValue(intent).Build()

	if err := dispatcher.Handle(context.Background(), msg); err == nil {
		t.Fatal("Handle() accepted an intent without a contact ref")
	}
}

func TestHandlePropagatesDeliveryFailure(t *testing.T) {
	channel := &mockChannel{
		deliverFunc: func(ctx context.Context, intent model.NotificationIntent) error {
			return errors.New("channel down")
		},
	}
	dispatcher := NewDispatcher(channel, testLogger())

	msg := kafka.NewMessage().WithValue(testIntent()).Build()

	if err := dispatcher.Handle(context.Background(), msg); err == nil {
		t.Fatal("Handle() swallowed a delivery failure")
	}
}
