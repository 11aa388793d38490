package ordersservice

import (
	"context"

	service "restaurant-fulfillment/internal/app/ordersservice"
	"restaurant-fulfillment/internal/shared/config"
	"restaurant-fulfillment/internal/shared/logger"
	pg "restaurant-fulfillment/internal/shared/postgres"
	"restaurant-fulfillment/internal/shared/rabbitmq"
	"restaurant-fulfillment/migrations"

	"restaurant-fulfillment/internal/shared/contracts"
)

// Run wires the orders service and blocks until ctx is cancelled.
func Run(ctx context.Context, prefetch int) error {
	log := logger.NewLogger("orders-service")
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

	rmq, err := rabbitmq.Connect(ctx, cfg, log, rabbitmq.OrdersTopology())
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
		pg.NewOrdersRepo(),
		&rabbitmq.Publisher{Client: rmq},
		rpc,
		log,
	)

	consumer := rabbitmq.NewConsumer(rmq, contracts.OrdersQueue, prefetch, log)
	service.RegisterHandlers(consumer, svc, log)

	log.Info(ctx, "service_started", "Orders service started", map[string]any{"prefetch": prefetch})
	consumer.Run(ctx)
	return nil
}
