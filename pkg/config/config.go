package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bookline/pkg/client"
	"bookline/pkg/logger"
)

var hoursRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]-([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// WeeklyHours holds the raw per-weekday windows, indexed by
	// time.Weekday. "closed" marks a closed day.
	WeeklyHours [7]string

	DefaultDurationMin int
	MaxBookingLead     time.Duration
	SlotLockTTL        time.Duration

	NotificationsTopic  string
	NotificationsDLQ    string
	NotifyConsumerGroup string

	Log    *logger.Logger
	Client *client.Client
}

// Tunables are the knobs operators may change without restarting: the
// lifecycle scheduler and the availability planner re-read them on every
// pass instead of caching them at startup.
type Tunables struct {
	AutoConfirmAfter   time.Duration
	ReminderLookahead  time.Duration
	SlotGranularityMin int
	LifecycleTick      time.Duration
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		WeeklyHours: [7]string{
			getEnvStr(EnvHoursSunday, DefaultClosedValue),
			getEnvStr(EnvHoursMonday, DefaultOpenHours),
			getEnvStr(EnvHoursTuesday, DefaultOpenHours),
			getEnvStr(EnvHoursWednesday, DefaultOpenHours),
			getEnvStr(EnvHoursThursday, DefaultOpenHours),
			getEnvStr(EnvHoursFriday, DefaultOpenHours),
			getEnvStr(EnvHoursSaturday, DefaultOpenHours),
		},

		DefaultDurationMin: getEnvNum(EnvDefaultDurationMin, DefaultDurationMin),
		MaxBookingLead:     getEnvDuration(EnvMaxBookingLead, DefaultMaxBookingLead),
		SlotLockTTL:        getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),

		NotificationsTopic:  getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsDLQ:    getEnvStr(EnvNotificationsDLQ, DefaultNotificationsDLQ),
		NotifyConsumerGroup: getEnvStr(EnvNotifyConsumerGroup, DefaultNotifyConsumerGroup),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.FormatJSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	return cfg
}

// Tunables re-reads the operator-adjustable knobs from the environment.
// Called at the start of every lifecycle tick and availability computation.
func (cfg *Config) Tunables() Tunables {
	return Tunables{
		AutoConfirmAfter:   getEnvDuration(EnvAutoConfirmAfter, DefaultAutoConfirmAfter),
		ReminderLookahead:  getEnvDuration(EnvReminderLookahead, DefaultReminderLookahead),
		SlotGranularityMin: getEnvNum(EnvSlotGranularityMin, DefaultSlotGranularityMin),
		LifecycleTick:      getEnvDuration(EnvLifecycleTick, DefaultLifecycleTick),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	for day, window := range cfg.WeeklyHours {
		if window == DefaultClosedValue {
			continue
		}
		if !hoursRegex.MatchString(window) {
			errs = append(errs, fmt.Sprintf("business hours for %s must be HH:MM-HH:MM or 'closed', got: %s", time.Weekday(day), window))
		}
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.DefaultDurationMin <= 0 {
		errs = append(errs, fmt.Sprintf("DefaultDurationMin must be positive, got: %d", cfg.DefaultDurationMin))
	}
	if cfg.MaxBookingLead <= 0 {
		errs = append(errs, fmt.Sprintf("MaxBookingLead must be positive, got: %s", cfg.MaxBookingLead))
	}
	if cfg.SlotLockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("SlotLockTTL must be positive, got: %s", cfg.SlotLockTTL))
	}
	if cfg.NotificationsTopic == "" {
		errs = append(errs, "NotificationsTopic cannot be empty")
	}

	tunables := cfg.Tunables()
	if tunables.AutoConfirmAfter <= 0 {
		errs = append(errs, fmt.Sprintf("AutoConfirmAfter must be positive, got: %s", tunables.AutoConfirmAfter))
	}
	if tunables.ReminderLookahead <= 0 {
		errs = append(errs, fmt.Sprintf("ReminderLookahead must be positive, got: %s", tunables.ReminderLookahead))
	}
	if tunables.SlotGranularityMin <= 0 {
		errs = append(errs, fmt.Sprintf("SlotGranularityMin must be positive, got: %d", tunables.SlotGranularityMin))
	}
	if tunables.LifecycleTick <= 0 {
		errs = append(errs, fmt.Sprintf("LifecycleTick must be positive, got: %s", tunables.LifecycleTick))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	tunables := cfg.Tunables()
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"weekly_hours", cfg.WeeklyHours,
		"default_duration_min", cfg.DefaultDurationMin,
		"max_booking_lead", cfg.MaxBookingLead,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"notifications_topic", cfg.NotificationsTopic,
		"auto_confirm_after", tunables.AutoConfirmAfter,
		"reminder_lookahead", tunables.ReminderLookahead,
		"slot_granularity_min", tunables.SlotGranularityMin,
		"lifecycle_tick", tunables.LifecycleTick,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
