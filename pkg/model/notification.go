package model

import "time"

// Notification intent kinds.
const (
	IntentConfirmation = "confirmation"
	IntentReminder     = "reminder"
	IntentCancellation = "cancellation"
)

// Notification recipients.
const (
	RecipientCustomer = "customer"
	RecipientStaff    = "staff"
)

// NotificationIntent is a structured, not-yet-delivered request to message a
// recipient about a reservation event. The engine only emits intents; the
// notification collaborator owns message formatting and delivery.
type NotificationIntent struct {
	Kind        string    `json:"kind"`
	Recipient   string    `json:"recipient"`
	ContactRef  string    `json:"contact_ref"`
	Reservation Summary   `json:"reservation"`
	ManageToken string    `json:"manage_token,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
