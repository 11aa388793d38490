package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

// RPCClient implements request/reply over the broker with one long-lived
// exclusive reply queue per process and a local correlation map, instead
// of a fresh queue per call. Correlation ids are random UUIDs.
type RPCClient struct {
	client  *Client
	send    func(exchange, routingKey string, msg amqp.Publishing) error
	logger  *logger.Logger
	timeout time.Duration

	// closed once the reply queue has been declared for the first time;
	// Call waits on it so a request issued right after startup does not
	// fail before the dispatch loop is up
	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.Mutex
	pending    map[string]chan contracts.Response
	replyQueue string
}

var _ ports.RPCCaller = (*RPCClient)(nil)

// NewRPCClient sets up the reply queue and starts the reply dispatch loop.
func NewRPCClient(ctx context.Context, client *Client, timeout time.Duration, log *logger.Logger) (*RPCClient, error) {
	rpc := &RPCClient{
		client:  client,
		send:    client.publish,
		logger:  log,
		timeout: timeout,
		ready:   make(chan struct{}),
		pending: make(map[string]chan contracts.Response),
	}

	go rpc.consumeReplies(ctx)

	return rpc, nil
}

// Call publishes the request with replyTo/correlationId set and blocks the
// calling goroutine until the correlated reply arrives or the deadline
// passes. A timeout does not retract the request; a late reply to an
// already-abandoned correlation id is discarded by the dispatch loop.
func (rpc *RPCClient) Call(ctx context.Context, exchange, routingKey string, payload any) (contracts.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return contracts.Response{}, fmt.Errorf("rpc: marshal request: %w", err)
	}

	// one timer covers the whole call: waiting for the reply queue eats
	// into the same deadline as waiting for the reply
	timer := time.NewTimer(rpc.timeout)
	defer timer.Stop()

	select {
	case <-rpc.ready:
	case <-timer.C:
		return contracts.Response{}, apperr.Wrap(apperr.CodeRPCTimeout,
			"rpc: reply queue not ready within "+rpc.timeout.String(), context.DeadlineExceeded)
	case <-ctx.Done():
		return contracts.Response{}, apperr.Wrap(apperr.CodeRPCTimeout, "rpc: call cancelled", ctx.Err())
	}

	rpc.mu.Lock()
	replyQueue := rpc.replyQueue
	rpc.mu.Unlock()
	if replyQueue == "" {
		// queue lost mid-reconnect; the retry-driven callers come back
		return contracts.Response{}, apperr.New(apperr.CodeExternal, "rpc: reply queue not ready")
	}

	corrID := uuid.NewString()
	ch := make(chan contracts.Response, 1)

	rpc.mu.Lock()
	rpc.pending[corrID] = ch
	rpc.mu.Unlock()
	defer func() {
		rpc.mu.Lock()
		delete(rpc.pending, corrID)
		rpc.mu.Unlock()
	}()

	err = rpc.send(exchange, routingKey, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       replyQueue,
		Body:          body,
	})
	if err != nil {
		return contracts.Response{}, fmt.Errorf("rpc: publish request: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return contracts.Response{}, apperr.Wrap(apperr.CodeRPCTimeout,
			fmt.Sprintf("rpc: no reply for %s within %s", routingKey, rpc.timeout), context.DeadlineExceeded)
	case <-ctx.Done():
		return contracts.Response{}, apperr.Wrap(apperr.CodeRPCTimeout, "rpc: call cancelled", ctx.Err())
	}
}

// IsTimeout reports whether err is an RPC deadline failure.
func IsTimeout(err error) bool {
	return apperr.CodeOf(err) == apperr.CodeRPCTimeout
}

// consumeReplies keeps one exclusive auto-named reply queue alive and
// routes each reply to the waiting caller by correlation id. On channel
// loss it re-declares the queue; calls in flight at that moment time out.
func (rpc *RPCClient) consumeReplies(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := rpc.client.NewConsumerChannel(0)
		if err != nil {
			rpc.logger.Error(ctx, "rpc_channel_failed", "Failed to open reply channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, 30*time.Second)
			continue
		}

		// server-named, exclusive, auto-delete
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			_ = ch.Close()
			rpc.logger.Error(ctx, "rpc_queue_declare_failed", "Failed to declare reply queue", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, 30*time.Second)
			continue
		}

		deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
		if err != nil {
			_ = ch.Close()
			rpc.logger.Error(ctx, "rpc_consume_failed", "Failed to consume reply queue", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, 30*time.Second)
			continue
		}

		rpc.mu.Lock()
		rpc.replyQueue = q.Name
		rpc.mu.Unlock()
		rpc.readyOnce.Do(func() { close(rpc.ready) })
		backoff = time.Second

	dispatch:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				return
			case d, ok := <-deliveries:
				if !ok {
					_ = ch.Close()
					break dispatch
				}
				rpc.resolve(ctx, d)
			}
		}

		rpc.mu.Lock()
		rpc.replyQueue = ""
		rpc.mu.Unlock()

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, 30*time.Second)
	}
}

// resolve hands one reply to its waiting caller, if any.
func (rpc *RPCClient) resolve(ctx context.Context, d amqp.Delivery) {
	rpc.mu.Lock()
	waiter, ok := rpc.pending[d.CorrelationId]
	if ok {
		delete(rpc.pending, d.CorrelationId)
	}
	rpc.mu.Unlock()

	if !ok {
		// late reply after the caller gave up
		rpc.logger.Debug(ctx, "rpc_reply_discarded", "Reply with unknown correlation id discarded",
			map[string]any{"correlation_id": d.CorrelationId})
		return
	}

	var resp contracts.Response
	if err := json.Unmarshal(d.Body, &resp); err != nil {
		resp = contracts.Fail(500, "malformed reply payload")
	}

	waiter <- resp
}
