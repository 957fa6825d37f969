package notify

import (
	"context"
	"fmt"
	"time"

	"bookline/pkg/kafka"
	"bookline/pkg/locale"
	"bookline/pkg/logger"
	"bookline/pkg/model"
)

// Dispatcher consumes notification intents and hands each one to a
// delivery channel. Rendering the outbound text is the channel's job;
// the dispatcher only routes structured intents.
type Dispatcher struct {
	channel Channel
	log     *logger.Logger
}

// Channel delivers one intent to a customer-facing medium. The logging
// implementation below is the default until a messaging integration is
// plugged in.
type Channel interface {
	Deliver(ctx context.Context, intent model.NotificationIntent) error
}

func NewDispatcher(channel Channel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		log:     log,
	}
}

// Handle is the kafka consumer entry point. Returning an error sends the
// message through the consumer's retry and DLQ path.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	var intent model.NotificationIntent
	if err := msg.DecodeValue(&intent); err != nil {
		return fmt.Errorf("failed to decode notification intent: %w", err)
	}

	if intent.Kind == "" || intent.ContactRef == "" {
		return fmt.Errorf("notification intent missing kind or contact ref, event_id=%s", msg.GetEventID())
	}

	if err := d.channel.Deliver(ctx, intent); err != nil {
		return fmt.Errorf("failed to deliver %s notification: %w", intent.Kind, err)
	}

	d.log.Info("Notification dispatched",
		"kind", intent.Kind,
		"recipient", intent.Recipient,
		"reservation_id", intent.Reservation.ID,
		"event_type", msg.GetEventType(),
	)
	return nil
}

// LogChannel records what would have been sent. Used until a real
// delivery integration exists, and in environments without one.
type LogChannel struct {
	log *logger.Logger
}

func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Deliver(ctx context.Context, intent model.NotificationIntent) error {
	// The appointment time is rendered in the customer's timezone,
	// inferred from the phone prefix of the contact ref.
	tz := locale.InferTimezoneFromPhone(intent.ContactRef)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	c.log.Info("Delivering notification",
		"kind", intent.Kind,
		"recipient", intent.Recipient,
		"contact_ref", intent.ContactRef,
		"service_name", intent.Reservation.ServiceName,
		"start_local", intent.Reservation.StartTime.In(loc).Format(time.RFC3339),
		"timezone", tz,
	)
	return nil
}
