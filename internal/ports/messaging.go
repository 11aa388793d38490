package ports

import (
	"context"

	"restaurant-fulfillment/internal/shared/contracts"
)

// Publisher is the fire-and-forget one-way send used for state-change
// events and retry requeues.
type Publisher interface {
	Publish(exchange, routingKey string, payload any) error
}

// RPCCaller sends a request and blocks until the correlated reply arrives
// or the configured deadline passes.
type RPCCaller interface {
	Call(ctx context.Context, exchange, routingKey string, payload any) (contracts.Response, error)
}

// RetryScheduler parks a payload in a domain's delay queue; the broker
// redelivers it to the working queue when the TTL expires.
type RetryScheduler interface {
	ScheduleRetry(exchange, routingKey string, payload any) error
}

// MarketClient buys an ingredient from the external farmers market.
// A failed call degrades to zero bought; it is never a distinct error state.
type MarketClient interface {
	Buy(ctx context.Context, ingredientName string) (int, error)
}
