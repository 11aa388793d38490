package ordersservice

import (
	"context"
	"encoding/json"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// RegisterHandlers binds the orders routing keys to the service.
func RegisterHandlers(c *rabbitmq.Consumer, svc *Service, log *logger.Logger) {
	c.Handle(contracts.OrdersCreateNewOrder, func(ctx context.Context, body []byte) contracts.Response {
		result, err := svc.CreateOrder(ctx)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Order created and sent to the kitchen.", result)
	})

	c.Handle(contracts.OrdersUpdateOrder, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.UpdateOrderMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode update-order payload", err)
			return contracts.Fail(400, "malformed update-order payload")
		}
		updated, err := svc.UpdateOrder(ctx, msg)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Order updated.", view(updated))
	})

	c.Handle(contracts.OrdersGetOrders, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.PageMessage
		_ = json.Unmarshal(body, &msg) // empty payload means first page
		views, meta, err := svc.GetOrders(ctx, msg.Page, msg.Limit)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OKPaged("Orders retrieved.", views, meta)
	})

	c.Handle(contracts.OrdersGetOrderByID, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.GetByIDMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode get-order payload", err)
			return contracts.Fail(400, "malformed get-order payload")
		}
		order, err := svc.GetOrderByID(ctx, msg.ID)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Order retrieved.", view(order))
	})
}
