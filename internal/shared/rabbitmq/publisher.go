package rabbitmq

import (
	"restaurant-fulfillment/internal/ports"
)

// Publisher is the fire-and-forget event send over the shared client.
type Publisher struct {
	Client *Client
}

var _ ports.Publisher = (*Publisher)(nil)

// Publish marshals payload and sends it to the exchange/routing key.
func (p *Publisher) Publish(exchange, routingKey string, payload any) error {
	return p.Client.PublishJSON(exchange, routingKey, payload)
}

// Scheduler re-publishes a payload onto a domain's retry exchange; the
// retry queue's TTL + dead-letter config turns that into a delayed
// redelivery on the working queue.
type Scheduler struct {
	Client *Client
}

var _ ports.RetryScheduler = (*Scheduler)(nil)

// ScheduleRetry parks the payload in the retry queue bound to routingKey.
func (s *Scheduler) ScheduleRetry(exchange, routingKey string, payload any) error {
	return s.Client.PublishJSON(exchange, routingKey, payload)
}
