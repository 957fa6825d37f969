package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	// Weekly business hours, one variable per weekday. Value is either
	// "HH:MM-HH:MM" or the literal "closed".
	EnvHoursSunday    = "BUSINESS_HOURS_SUNDAY"
	EnvHoursMonday    = "BUSINESS_HOURS_MONDAY"
	EnvHoursTuesday   = "BUSINESS_HOURS_TUESDAY"
	EnvHoursWednesday = "BUSINESS_HOURS_WEDNESDAY"
	EnvHoursThursday  = "BUSINESS_HOURS_THURSDAY"
	EnvHoursFriday    = "BUSINESS_HOURS_FRIDAY"
	EnvHoursSaturday  = "BUSINESS_HOURS_SATURDAY"

	EnvSlotGranularityMin  = "SLOT_GRANULARITY_MIN"
	EnvDefaultDurationMin  = "DEFAULT_DURATION_MIN"
	EnvMaxBookingLead      = "MAX_BOOKING_LEAD"
	EnvSlotLockTTL         = "SLOT_LOCK_TTL"
	EnvAutoConfirmAfter    = "AUTO_CONFIRM_AFTER"
	EnvReminderLookahead   = "REMINDER_LOOKAHEAD"
	EnvLifecycleTick       = "LIFECYCLE_TICK_INTERVAL"
	EnvNotificationsTopic  = "NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQ    = "NOTIFICATIONS_DLQ_TOPIC"
	EnvNotifyConsumerGroup = "NOTIFY_CONSUMER_GROUP"
)
