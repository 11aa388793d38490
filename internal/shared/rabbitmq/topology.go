package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/shared/config"
	"restaurant-fulfillment/internal/shared/contracts"
)

// RetryTopology is a delay queue: messages sit in Queue until the TTL
// expires, then the broker dead-letters them back onto the domain's
// working exchange with RoutingKey. This is the system's only timer.
type RetryTopology struct {
	Exchange   string
	Queue      string
	RoutingKey string
	TTL        time.Duration
}

// Topology declares everything one domain needs on the broker: a durable
// direct exchange, a working queue with its bindings, an optional retry
// pair, and the shared notifications fanout.
type Topology struct {
	Exchange           string
	Queue              string
	Bindings           []string
	Retry              *RetryTopology
	NotificationsQueue bool // bind the shared notifications queue (subscriber side)
}

// Declare idempotently asserts the topology on the given channel. It is
// re-run after every reconnect.
func (t Topology) Declare(ch *amqp.Channel) error {
	// every service publishes order-update notifications at some point
	if err := ch.ExchangeDeclare(contracts.NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if t.NotificationsQueue {
		if _, err := ch.QueueDeclare(contracts.NotificationsQueue, true, false, false, false, nil); err != nil {
			return err
		}
		if err := ch.QueueBind(contracts.NotificationsQueue, "", contracts.NotificationsExchange, false, nil); err != nil {
			return err
		}
	}

	if t.Exchange != "" {
		if err := ch.ExchangeDeclare(t.Exchange, "direct", true, false, false, false, nil); err != nil {
			return err
		}
	}
	if t.Queue != "" {
		if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
			return err
		}
		for _, key := range t.Bindings {
			if err := ch.QueueBind(t.Queue, key, t.Exchange, false, nil); err != nil {
				return err
			}
		}
	}

	// RPC targets of this domain must exist before the first call
	for _, ex := range []string{contracts.OrdersExchange, contracts.KitchenExchange, contracts.WarehouseExchange, contracts.AuthExchange} {
		if ex == t.Exchange {
			continue
		}
		if err := ch.ExchangeDeclare(ex, "direct", true, false, false, false, nil); err != nil {
			return err
		}
	}

	if t.Retry != nil {
		if err := ch.ExchangeDeclare(t.Retry.Exchange, "direct", true, false, false, false, nil); err != nil {
			return err
		}
		if _, err := ch.QueueDeclare(t.Retry.Queue, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    t.Exchange,
			"x-dead-letter-routing-key": t.Retry.RoutingKey,
			"x-message-ttl":             int32(t.Retry.TTL.Milliseconds()),
		}); err != nil {
			return err
		}
		if err := ch.QueueBind(t.Retry.Queue, t.Retry.RoutingKey, t.Retry.Exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}

// OrdersTopology is the orders domain: queue bound to the CRUD-ish keys.
func OrdersTopology() Topology {
	return Topology{
		Exchange: contracts.OrdersExchange,
		Queue:    contracts.OrdersQueue,
		Bindings: []string{
			contracts.OrdersCreateNewOrder,
			contracts.OrdersUpdateOrder,
			contracts.OrdersGetOrders,
			contracts.OrdersGetOrderByID,
		},
	}
}

// KitchenTopology is the kitchen domain plus its status-poll retry queue.
func KitchenTopology(cfg *config.Config) Topology {
	return Topology{
		Exchange: contracts.KitchenExchange,
		Queue:    contracts.KitchenQueue,
		Bindings: []string{
			contracts.KitchenNewOrder,
			contracts.KitchenGetRecipes,
			contracts.KitchenGetRecipeByID,
			contracts.KitchenRetryOrderCheck,
		},
		Retry: &RetryTopology{
			Exchange:   contracts.KitchenRetryExchange,
			Queue:      contracts.KitchenRetryQueue,
			RoutingKey: contracts.KitchenRetryOrderCheck,
			TTL:        cfg.Retry.TTL,
		},
	}
}

// WarehouseTopology is the warehouse domain plus its reservation retry queue.
func WarehouseTopology(cfg *config.Config) Topology {
	return Topology{
		Exchange: contracts.WarehouseExchange,
		Queue:    contracts.WarehouseQueue,
		Bindings: []string{
			contracts.WarehouseIngredientsRequest,
			contracts.WarehouseRetryIngredients,
			contracts.WarehouseGetIngredients,
			contracts.WarehouseGetIngredientByID,
			contracts.WarehouseGetMarketHistory,
		},
		Retry: &RetryTopology{
			Exchange:   contracts.WarehouseRetryExchange,
			Queue:      contracts.WarehouseRetryQueue,
			RoutingKey: contracts.WarehouseRetryIngredients,
			TTL:        cfg.Retry.TTL,
		},
	}
}

// AuthTopology is the auth domain.
func AuthTopology() Topology {
	return Topology{
		Exchange: contracts.AuthExchange,
		Queue:    contracts.AuthQueue,
		Bindings: []string{
			contracts.AuthLogin,
			contracts.AuthVerifyToken,
		},
	}
}

// NotificationsTopology is the subscriber side of the fanout only.
func NotificationsTopology() Topology {
	return Topology{NotificationsQueue: true}
}
