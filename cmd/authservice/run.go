package authservice

import (
	"context"

	service "restaurant-fulfillment/internal/app/authservice"
	"restaurant-fulfillment/internal/clock"
	"restaurant-fulfillment/internal/shared/config"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	pg "restaurant-fulfillment/internal/shared/postgres"
	"restaurant-fulfillment/internal/shared/rabbitmq"
	"restaurant-fulfillment/migrations"
)

// Run wires the auth service and blocks until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	log := logger.NewLogger("auth-service")
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	pool, err := pg.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err)
		return err
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Error(ctx, "migrations_failed", "Failed to apply migrations", err)
		return err
	}

	rmq, err := rabbitmq.Connect(ctx, cfg, log, rabbitmq.AuthTopology())
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	svc := service.New(
		pg.NewUnitOfWork(pool),
		pg.NewUsersRepo(),
		cfg.Auth.JWTSecret,
		cfg.Auth.TokenTTL,
		clock.NewSystem(),
		log,
	)

	consumer := rabbitmq.NewConsumer(rmq, contracts.AuthQueue, prefetch, log)
	service.RegisterHandlers(consumer, svc, log)

	log.Info(ctx, "service_started", "Auth service started", map[string]any{"prefetch": prefetch})
	consumer.Run(ctx)
	return nil
}
