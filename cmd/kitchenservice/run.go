package kitchenservice

import (
	"context"

	service "restaurant-fulfillment/internal/app/kitchenservice"
	"restaurant-fulfillment/internal/shared/config"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	pg "restaurant-fulfillment/internal/shared/postgres"
	"restaurant-fulfillment/internal/shared/rabbitmq"
	"restaurant-fulfillment/migrations"
)

// Run wires the kitchen service and blocks until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	log := logger.NewLogger("kitchen-service")
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

	rmq, err := rabbitmq.Connect(ctx, cfg, log, rabbitmq.KitchenTopology(cfg))
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	rpc, err := rabbitmq.NewRPCClient(ctx, rmq, cfg.RPC.Timeout, log)
	if err != nil {
		log.Error(ctx, "rpc_setup_failed", "Failed to set up RPC reply consumer", err)
		return err
	}

	svc := service.New(
		pg.NewUnitOfWork(pool),
		pg.NewRecipesRepo(),
		&rabbitmq.Publisher{Client: rmq},
		rpc,
		&rabbitmq.Scheduler{Client: rmq},
		log,
		cfg.Retry.MaxAttempts,
	)

	consumer := rabbitmq.NewConsumer(rmq, contracts.KitchenQueue, prefetch, log)
	service.RegisterHandlers(consumer, svc, log)

	log.Info(ctx, "service_started", "Kitchen service started", map[string]any{"prefetch": prefetch})
	consumer.Run(ctx)
	return nil
}
