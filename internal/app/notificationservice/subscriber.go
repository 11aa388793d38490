package notificationservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// ConsumeForever continuously (re)creates a channel and consumes the
// durable notifications queue, printing one human-readable line per order
// update.
func ConsumeForever(ctx context.Context, rmq *rabbitmq.Client, logger *logger.Logger) {
	const (
		prefetch       = 50 // limit unacked messages this consumer can hold
		retryBaseDelay = time.Second
		retryMaxDelay  = 30 * time.Second
	)

	backoff := retryBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := rmq.NewConsumerChannel(prefetch)
		if err != nil {
			logger.Error(ctx, "rabbitmq_channel_open_failed", "Failed to open consumer channel", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}
		backoff = retryBaseDelay

		deliveries, err := ch.Consume(contracts.NotificationsQueue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			logger.Error(ctx, "rabbitmq_consume_failed", "Failed to start consuming notifications", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, retryMaxDelay)
			continue
		}

		closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	consumption:
		for {
			select {
			case <-ctx.Done():
				_ = ch.Close()
				break consumption

			case amqpErr := <-closed:
				if amqpErr != nil {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", amqpErr)
				} else {
					logger.Error(ctx, "rabbitmq_channel_closed", "Consumer channel closed", errors.New("unknown channel close"))
				}
				break consumption

			case d, ok := <-deliveries:
				if !ok {
					logger.Error(ctx, "rabbitmq_deliveries_closed", "Deliveries channel closed", errors.New("deliveries channel closed"))
					break consumption
				}
				handleDelivery(ctx, logger, d)
			}
		}

		if !sleepWithContext(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, retryMaxDelay)
	}
}

func handleDelivery(ctx context.Context, logger *logger.Logger, d amqp.Delivery) {
	var update contracts.OrderUpdatedNotification
	if err := json.Unmarshal(d.Body, &update); err != nil {
		logger.Error(ctx, "notification_decode_failed", "Failed to decode order update JSON", err)
		// malformed JSON cannot be recovered by redelivery, ack to drop it
		_ = d.Ack(false)
		return
	}

	logger.Debug(ctx, "notification_received", "Received order update", map[string]any{
		"order_id":   update.ID,
		"old_status": update.OldStatus,
		"new_status": update.NewStatus,
	})

	fmt.Println(renderHuman(update))

	if err := d.Ack(false); err != nil {
		logger.Error(ctx, "rabbitmq_ack_failed", "Failed to ack notification message", err)
	}
}

func renderHuman(update contracts.OrderUpdatedNotification) string {
	if update.RecipeID != nil {
		return fmt.Sprintf(
			"Notification for order %s: status changed from '%s' to '%s' (recipe %s).",
			update.ID, update.OldStatus, update.NewStatus, *update.RecipeID,
		)
	}
	return fmt.Sprintf(
		"Notification for order %s: status changed from '%s' to '%s'.",
		update.ID, update.OldStatus, update.NewStatus,
	)
}

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

func nextBackoff(curr, cap time.Duration) time.Duration {
	n := curr * 2
	if n > cap {
		return cap
	}
	return n
}
