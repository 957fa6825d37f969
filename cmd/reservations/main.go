package main

import (
	"bookline/internal/availability"
	"bookline/internal/calendar"
	"bookline/internal/notify"
	"bookline/internal/reservations/handler"
	"bookline/internal/reservations/repository"
	"bookline/internal/reservations/service"
	"bookline/internal/reservations/validator"
	"bookline/pkg/app"
	"bookline/pkg/config"
	"bookline/pkg/kafka"
	kafka_config "bookline/pkg/kafka/config"
	kafka_middleware "bookline/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Reservations service")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cal, err := calendar.New(cfg.WeeklyHours)
	if err != nil {
		cfg.Log.Fatal("Invalid business hours configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic, cfg.NotificationsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	reservationService, planner := initServices(cfg, cal, producer)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewReservationHandler(reservationService, cfg.Log),
		handler.NewAvailabilityHandler(planner, cfg.DefaultDurationMin, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, cal *calendar.Calendar, producer *kafka.Producer) (service.ReservationService, *availability.Planner) {
	reservationValidator := validator.NewReservationValidator(cal, cfg.MaxBookingLead, cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)
	sender := notify.NewKafkaSender(producer, ServiceName, cfg.Log)

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		reservationValidator,
		sender,
		cfg,
	)

	planner := availability.NewPlanner(cal, reservationRepo, func() int {
		return cfg.Tunables().SlotGranularityMin
	})

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService, planner
}
