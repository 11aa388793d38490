package warehouseservice

import (
	"context"
	"encoding/json"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// RegisterHandlers binds the warehouse routing keys to the service. The
// delayed-retry key reuses the reservation handler; a retried request is
// just the original request with a bumped attempt counter.
func RegisterHandlers(c *rabbitmq.Consumer, svc *Service, log *logger.Logger) {
	reserve := func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.IngredientsRequestMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode ingredients request", err)
			return contracts.Fail(400, "malformed ingredients request")
		}
		result, err := svc.Reserve(ctx, msg)
		if err != nil {
			return contracts.FromError(err)
		}
		if result.Delivered {
			return contracts.OK("Ingredients delivered.", result)
		}
		return contracts.OK("Stock short, reservation parked for retry.", result)
	}
	c.Handle(contracts.WarehouseIngredientsRequest, reserve)
	c.Handle(contracts.WarehouseRetryIngredients, reserve)

	c.Handle(contracts.WarehouseGetIngredients, func(ctx context.Context, body []byte) contracts.Response {
		views, err := svc.GetIngredients(ctx)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Ingredients retrieved.", views)
	})

	c.Handle(contracts.WarehouseGetIngredientByID, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.GetByIDMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode get-ingredient payload", err)
			return contracts.Fail(400, "malformed get-ingredient payload")
		}
		view, err := svc.GetIngredientByID(ctx, msg.ID)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Ingredient retrieved.", view)
	})

	c.Handle(contracts.WarehouseGetMarketHistory, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.PageMessage
		_ = json.Unmarshal(body, &msg) // empty payload means first page
		views, meta, err := svc.GetMarketHistory(ctx, msg.Page, msg.Limit)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OKPaged("Market history retrieved.", views, meta)
	})
}
