package main

import (
	"context"
	"os/signal"
	"syscall"

	"bookline/internal/lifecycle"
	"bookline/internal/notify"
	"bookline/internal/reservations/repository"
	"bookline/pkg/config"
	"bookline/pkg/kafka"
	kafka_config "bookline/pkg/kafka/config"
	kafka_middleware "bookline/pkg/kafka/middleware"
)

const ServiceName = "lifecycle"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Lifecycle service")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

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

	reservationRepo := repository.NewMongoReservationRepository(cfg)
	sender := notify.NewKafkaSender(producer, ServiceName, cfg.Log)
	scheduler := lifecycle.NewScheduler(reservationRepo, sender, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Run(ctx)
}
