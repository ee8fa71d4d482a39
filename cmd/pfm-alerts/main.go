// pfm-alerts consumes over-budget alert messages and writes them to the
// log. It is the integration point for real notification channels.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pfm/internal/config"
	"pfm/internal/log"
	"pfm/internal/notify"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert consumer")
		os.Exit(1)
	}

	consumer, err := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting pfm-alerts consumer", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = consumer.ConsumeBudgetAlerts(ctx, func(msg *notify.BudgetAlertMessage) error {
		logger.Warn("Budget exceeded",
			log.FieldUserID, msg.UserID,
			log.FieldCategory, msg.Category,
			log.FieldYear, msg.Year,
			log.FieldMonth, msg.Month,
			"limit_cents", msg.LimitCents,
			"spent_cents", msg.SpentCents,
			"over_cents", msg.OverAmountCents)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Consumer stopped gracefully")
}
