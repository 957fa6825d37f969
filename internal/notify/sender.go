package notify

import (
	"context"

	"bookline/pkg/kafka"
	"bookline/pkg/logger"
	"bookline/pkg/model"
	"bookline/pkg/sealer"
)

// Event types stamped on published notification intents.
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationReminder  = "reservation.reminder"
	EventReservationCancelled = "reservation.cancelled"
)

// Sender accepts notification intents for asynchronous delivery. The engine
// never formats outbound messages; it hands the structured intent to
// whichever collaborator owns the channel.
type Sender interface {
	Send(ctx context.Context, intent model.NotificationIntent) error
}

// KafkaSender publishes intents to the notifications topic, keyed by
// contact ref so all messages for one customer stay ordered on one
// partition.
type KafkaSender struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaSender(producer *kafka.Producer, source string, log *logger.Logger) *KafkaSender {
	return &KafkaSender{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (s *KafkaSender) Send(ctx context.Context, intent model.NotificationIntent) error {
	if intent.ManageToken == "" && intent.Reservation.ID != "" {
		token, err := sealer.CreateOpaqueToken(intent.Reservation.ID, intent.ContactRef)
		if err != nil {
			s.log.Warn("Failed to seal manage token", "reservation_id", intent.Reservation.ID, "error", err)
		} else {
			intent.ManageToken = token
		}
	}

	msg := kafka.NewMessage().
		WithKey(intent.ContactRef).
		WithValue(intent).
		WithEventType(eventType(intent.Kind)).
		WithSource(s.source).
		Build()

	if err := s.producer.Publish(ctx, msg); err != nil {
		return err
	}

	s.log.Debug("Notification intent published",
		"kind", intent.Kind,
		"recipient", intent.Recipient,
		"reservation_id", intent.Reservation.ID,
	)
	return nil
}

func eventType(kind string) string {
	switch kind {
	case model.IntentReminder:
		return EventReservationReminder
	case model.IntentCancellation:
		return EventReservationCancelled
	default:
		return EventReservationConfirmed
	}
}
