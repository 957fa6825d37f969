package main

import (
	"context"
	"os/signal"
	"syscall"

	"bookline/internal/notify"
	"bookline/pkg/config"
	"bookline/pkg/kafka"
	kafka_config "bookline/pkg/kafka/config"
	kafka_middleware "bookline/pkg/kafka/middleware"
)

const ServiceName = "notify"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Notify service")

	dispatcher := notify.NewDispatcher(notify.NewLogChannel(cfg.Log), cfg.Log)

	kafkaCfg := kafka_config.Load()
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.NotificationsTopic,
		cfg.NotifyConsumerGroup,
		cfg.NotificationsDLQ,
		dispatcher.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	defer consumer.Close()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming notification intents",
		"topic", cfg.NotificationsTopic,
		"group", cfg.NotifyConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Fatal("Consumer stopped unexpectedly", "error", err)
	}
}
