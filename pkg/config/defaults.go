package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bookline"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	// One premises, one calendar: open Monday through Saturday, closed on
	// Sunday unless overridden per weekday.
	DefaultOpenHours   = "11:00-19:00"
	DefaultClosedValue = "closed"

	DefaultSlotGranularityMin = 30
	DefaultDurationMin        = 60

	// A reservation may not start more than this far in the future.
	DefaultMaxBookingLead = 365 * 24 * time.Hour

	DefaultSlotLockTTL       = 10 * time.Second
	DefaultAutoConfirmAfter  = 24 * time.Hour
	DefaultReminderLookahead = 24 * time.Hour
	DefaultLifecycleTick     = 5 * time.Minute

	DefaultNotificationsTopic  = "reservation.notifications"
	DefaultNotificationsDLQ    = "reservation.notifications.dlq"
	DefaultNotifyConsumerGroup = "bookline-notify"
)
