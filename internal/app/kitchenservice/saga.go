package kitchenservice

import (
	"context"
	"encoding/json"
	"sync"

	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
)

// pollRegistry tracks which orders already have a status-poll loop in
// flight, so duplicate retry tasks for the same order are discarded at
// scheduling time.
type pollRegistry struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newPollRegistry() *pollRegistry {
	return &pollRegistry{inFlight: make(map[string]struct{})}
}

// tryStart claims the poll slot for an order. It returns false when a
// loop is already running.
func (r *pollRegistry) tryStart(orderID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[orderID]; ok {
		return false
	}
	r.inFlight[orderID] = struct{}{}
	return true
}

func (r *pollRegistry) stop(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, orderID)
}

// CheckResult is the reply payload of kitchen.retry.verificationOrderStatus.
type CheckResult struct {
	OrderID  string  `json:"orderId"`
	RecipeID *string `json:"recipeId"`
	Status   string  `json:"status"`
}

// CheckOrder is the poll step of the saga. It fetches the order from the
// orders domain and advances it: DELIVERED_INGREDIENTS becomes PREPARING,
// PREPARING becomes COMPLETED. The terminal check comes first so a
// COMPLETED order is never rescheduled. Every non-terminal outcome
// reschedules with the attempt counter bumped, up to the configured cap.
func (s *Service) CheckOrder(ctx context.Context, msg contracts.OrderCheckMessage) (CheckResult, error) {
	if msg.OrderID == "" {
		return CheckResult{}, apperr.Validation("orderId is required")
	}
	attempt := msg.Attempt
	if attempt < 1 {
		attempt = 1
	}

	resp, err := s.rpc.Call(ctx, contracts.OrdersExchange, contracts.OrdersGetOrderByID,
		contracts.GetByIDMessage{ID: msg.OrderID})
	if err != nil {
		// orders service unreachable is transient; the poll loop is the
		// recovery path, so keep it alive
		s.logger.Error(ctx, "rpc_call_failed", "orders service did not answer status poll", err)
		s.reschedule(ctx, msg.OrderID, attempt+1)
		return CheckResult{}, err
	}
	if !resp.Success {
		s.polls.stop(msg.OrderID)
		return CheckResult{}, apperr.NotFound("order not found: " + msg.OrderID)
	}

	var order struct {
		ID       string  `json:"id"`
		Status   string  `json:"status"`
		RecipeID *string `json:"recipeId"`
	}
	if err := json.Unmarshal(resp.Data, &order); err != nil {
		s.polls.stop(msg.OrderID)
		return CheckResult{}, apperr.Wrap(apperr.CodeInternal, "malformed order reply", err)
	}

	status := orders.OrderStatus(order.Status)
	result := CheckResult{OrderID: order.ID, RecipeID: order.RecipeID, Status: order.Status}

	if orders.Terminal(status) {
		s.polls.stop(msg.OrderID)
		s.logger.Info(ctx, "order_poll_finished", "Order reached terminal state", map[string]any{
			"order_id": order.ID,
			"attempts": attempt,
		})
		return result, nil
	}

	switch status {
	case orders.StatusDeliveredIngredients:
		if err := s.advance(ctx, order.ID, order.RecipeID, orders.StatusPreparing); err != nil {
			return CheckResult{}, err
		}
		result.Status = string(orders.StatusPreparing)
		s.reschedule(ctx, msg.OrderID, attempt+1)

	case orders.StatusPreparing:
		if err := s.advance(ctx, order.ID, order.RecipeID, orders.StatusCompleted); err != nil {
			return CheckResult{}, err
		}
		result.Status = string(orders.StatusCompleted)
		s.polls.stop(msg.OrderID)
		s.logger.Info(ctx, "order_completed", "Order completed", map[string]any{
			"order_id": order.ID,
			"attempts": attempt,
		})

	default:
		// RECEIVED, REQUESTING_INGREDIENTS, WAITING_FOR_INGREDIENTS: keep waiting
		s.reschedule(ctx, msg.OrderID, attempt+1)
	}

	return result, nil
}

// advance publishes one forward status transition for the order.
func (s *Service) advance(ctx context.Context, orderID string, recipeID *string, next orders.OrderStatus) error {
	msg := contracts.UpdateOrderMessage{ID: orderID, Status: string(next)}
	if recipeID != nil {
		msg.RecipeID = *recipeID
	}
	if err := s.pub.Publish(contracts.OrdersExchange, contracts.OrdersUpdateOrder, msg); err != nil {
		s.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish order update", err)
		return err
	}
	return nil
}

// schedulePoll starts the poll loop for an order unless one is already in
// flight.
func (s *Service) schedulePoll(ctx context.Context, orderID string, attempt int) {
	if !s.polls.tryStart(orderID) {
		s.logger.Debug(ctx, "poll_duplicate_discarded", "Poll already in flight for order",
			map[string]any{"order_id": orderID})
		return
	}
	s.publishPoll(ctx, orderID, attempt)
}

// reschedule continues an existing poll loop, escalating once the attempt
// cap is reached instead of looping forever.
func (s *Service) reschedule(ctx context.Context, orderID string, attempt int) {
	if attempt > s.maxAttempts {
		s.polls.stop(orderID)
		s.logger.Error(ctx, "retry_attempts_exhausted",
			"Order status poll exceeded the attempt cap; giving up on this order",
			apperr.New(apperr.CodeInternal, "poll attempts exhausted for order "+orderID))
		return
	}
	s.publishPoll(ctx, orderID, attempt)
}

func (s *Service) publishPoll(ctx context.Context, orderID string, attempt int) {
	err := s.retry.ScheduleRetry(contracts.KitchenRetryExchange, contracts.KitchenRetryOrderCheck,
		contracts.OrderCheckMessage{OrderID: orderID, Attempt: attempt})
	if err != nil {
		// the loop breaks here; the order stays wherever it is until an
		// operator or a fresh request re-triggers it
		s.polls.stop(orderID)
		s.logger.Error(ctx, "retry_schedule_failed", "failed to park status poll in retry queue", err)
	}
}
