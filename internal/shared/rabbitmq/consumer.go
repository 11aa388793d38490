package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

// HandlerFunc processes one inbound payload and produces the reply
// envelope. Handlers convert their own failures into failure responses;
// an error never escapes to the transport.
type HandlerFunc func(ctx context.Context, body []byte) contracts.Response

// Consumer is one domain's message-dispatch loop: it consumes the working
// queue and dispatches by routing key through a registry built at startup.
// Each delivery is handled on its own goroutine so a handler blocked in an
// RPC wait never stalls dispatch.
type Consumer struct {
	client   *Client
	queue    string
	prefetch int
	logger   *logger.Logger
	handlers map[string]HandlerFunc
}

// NewConsumer builds a consumer for the given working queue.
func NewConsumer(client *Client, queue string, prefetch int, log *logger.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queue:    queue,
		prefetch: prefetch,
		logger:   log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for one routing key. Registration happens
// once during wiring, before Run.
func (c *Consumer) Handle(routingKey string, h HandlerFunc) {
	c.handlers[routingKey] = h
}

// Run consumes until ctx is cancelled, recreating the channel with backoff
// after any loss.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := c.client.NewConsumerChannel(c.prefetch)
		if err != nil {
			c.logger.Error(ctx, "rabbitmq_channel_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, 30*time.Second)
			continue
		}

		deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			c.logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, 30*time.Second)
			continue
		}

		closed := ch.NotifyClose(make(chan *amqp.Error, 1))
		backoff = time.Second

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				return
			case amqpErr := <-closed:
				if amqpErr != nil {
					c.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				} else {
					c.logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
				}
				break consumption
			case d, ok := <-deliveries:
				if !ok {
					_ = ch.Close()
					break consumption
				}
				go c.dispatch(ctx, d)
			}
		}

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, 30*time.Second)
	}
}

// dispatch runs the handler for one delivery, replies when a reply address
// is present, and acks only after the handler has finished.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	// the RPC correlation id doubles as the request id, so log lines from
	// every domain touched by one request correlate
	if d.CorrelationId != "" {
		ctx = c.logger.WithRequestID(ctx, d.CorrelationId)
	}

	handler, ok := c.handlers[d.RoutingKey]
	if !ok {
		c.logger.Debug(ctx, "handler_missing", "No handler for routing key",
			map[string]any{"routing_key": d.RoutingKey})
		_ = d.Ack(false)
		return
	}

	c.logger.Debug(ctx, "message_received", "Dispatching message",
		map[string]any{"routing_key": d.RoutingKey})

	resp := c.run(ctx, handler, d)

	if d.ReplyTo != "" {
		// reply goes through the default exchange straight to the queue
		err := c.client.publish("", d.ReplyTo, buildReply(d.CorrelationId, resp))
		if err != nil {
			c.logger.Error(ctx, "rpc_reply_failed", "Failed to send reply", err)
		}
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack message", err)
	}
}

// run shields the dispatch loop from handler panics.
func (c *Consumer) run(ctx context.Context, handler HandlerFunc, d amqp.Delivery) (resp contracts.Response) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error(ctx, "handler_panicked", "Handler panicked",
				fmt.Errorf("panic in handler for %s: %v", d.RoutingKey, p))
			resp = contracts.Fail(500, "internal error")
		}
	}()
	return handler(ctx, d.Body)
}

func buildReply(corrID string, resp contracts.Response) amqp.Publishing {
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(contracts.Fail(500, "failed to encode reply"))
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		Body:          body,
	}
}

// sleepWithContext sleeps for the given duration or returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the backoff up to cap.
func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
