package ordersservice

import (
	"context"
	"time"

	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

// Service owns the order store. Orders are created here in RECEIVED state
// and mutated only through update messages arriving from other domains.
type Service struct {
	uow    ports.UnitOfWork
	repo   ports.OrderRepository
	pub    ports.Publisher
	rpc    ports.RPCCaller
	logger *logger.Logger
}

// New creates the orders service with its dependencies.
func New(uow ports.UnitOfWork, repo ports.OrderRepository, pub ports.Publisher, rpc ports.RPCCaller, log *logger.Logger) *Service {
	return &Service{uow: uow, repo: repo, pub: pub, rpc: rpc, logger: log}
}

// OrderView is the wire shape of one order.
type OrderView struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	RecipeID  *string `json:"recipeId"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

func view(o *orders.Order) OrderView {
	return OrderView{
		ID:        o.ID,
		Status:    string(o.Status),
		RecipeID:  o.RecipeID,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateResult is the reply payload of orders.create.newOrder.
type CreateResult struct {
	Order   OrderView          `json:"order"`
	Kitchen contracts.Response `json:"kitchenResponse"`
}

// CreateOrder inserts a RECEIVED order, then calls the kitchen to assign a
// recipe and start the fulfillment flow. The order outlives a failed
// kitchen call; the caller gets the failure and the saga never starts.
func (s *Service) CreateOrder(ctx context.Context) (CreateResult, error) {
	var order orders.Order
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, &order)
	})
	if err != nil {
		s.logger.Error(ctx, "db_transaction_failed", "failed to create order", err)
		return CreateResult{}, err
	}

	s.logger.Info(ctx, "order_created", "Order created", map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
	})

	kitchenResp, err := s.rpc.Call(ctx, contracts.KitchenExchange, contracts.KitchenNewOrder, contracts.NewOrderMessage{
		OrderID: order.ID,
		Status:  string(order.Status),
	})
	if err != nil {
		s.logger.Error(ctx, "rpc_call_failed", "kitchen did not answer new-order call", err)
		return CreateResult{}, err
	}

	return CreateResult{Order: view(&order), Kitchen: kitchenResp}, nil
}

// UpdateOrder applies a status transition. Transitions are monotonic:
// moving backward is rejected, re-applying the current status is not
// (replayed updates succeed twice; deduplication is the sender's concern).
func (s *Service) UpdateOrder(ctx context.Context, msg contracts.UpdateOrderMessage) (*orders.Order, error) {
	if msg.ID == "" {
		return nil, apperr.Validation("order id is required")
	}
	next := orders.OrderStatus(msg.Status)
	if !orders.Valid(next) {
		return nil, apperr.Validation("unknown order status: " + msg.Status)
	}

	var updated *orders.Order
	var oldStatus orders.OrderStatus
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, msg.ID)
		if err != nil {
			return err
		}
		if !orders.CanAdvance(current.Status, next) {
			return apperr.Validation("order status cannot move backward from " +
				string(current.Status) + " to " + string(next))
		}
		oldStatus = current.Status

		var recipeID *string
		if msg.RecipeID != "" {
			recipeID = &msg.RecipeID
		}
		updated, err = s.repo.Update(txCtx, msg.ID, recipeID, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "order_updated", "Order status updated", map[string]any{
		"order_id":   updated.ID,
		"old_status": oldStatus,
		"new_status": updated.Status,
	})

	// broadcast the full updated record to subscribers; the update itself
	// is already committed, so a failed broadcast is logged and dropped
	note := contracts.OrderUpdatedNotification{
		ID:        updated.ID,
		RecipeID:  updated.RecipeID,
		OldStatus: string(oldStatus),
		NewStatus: string(updated.Status),
		CreatedAt: updated.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: updated.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.pub.Publish(contracts.NotificationsExchange, "", note); err != nil {
		s.logger.Error(ctx, "rabbitmq_publish_failed", "failed to broadcast order update", err)
	}

	return updated, nil
}

// GetOrders returns one page of orders.
func (s *Service) GetOrders(ctx context.Context, page, limit int) ([]OrderView, contracts.PageMeta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var list []orders.Order
	var total int
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		list, total, err = s.repo.List(txCtx, page, limit)
		return err
	})
	if err != nil {
		return nil, contracts.PageMeta{}, err
	}

	views := make([]OrderView, 0, len(list))
	for i := range list {
		views = append(views, view(&list[i]))
	}
	return views, contracts.PageMeta{Total: total, Page: page, PerPage: limit}, nil
}

// GetOrderByID returns one order.
func (s *Service) GetOrderByID(ctx context.Context, id string) (*orders.Order, error) {
	if id == "" {
		return nil, apperr.Validation("order id is required")
	}

	var order *orders.Order
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.repo.GetByID(txCtx, id)
		return err
	})
	return order, err
}
