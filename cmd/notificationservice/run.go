package notificationservice

import (
	"context"

	service "restaurant-fulfillment/internal/app/notificationservice"
	"restaurant-fulfillment/internal/shared/config"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// Run wires the notification subscriber and blocks until ctx is cancelled.
func Run(ctx context.Context) error {
	log := logger.NewLogger("notification-subscriber")
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	rmq, err := rabbitmq.Connect(ctx, cfg, log, rabbitmq.NotificationsTopology())
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	log.Info(ctx, "service_started", "Notification subscriber started", nil)
	service.ConsumeForever(ctx, rmq, log)
	return nil
}
