package kitchenservice

import (
	"context"
	"encoding/json"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// RegisterHandlers binds the kitchen routing keys to the service.
func RegisterHandlers(c *rabbitmq.Consumer, svc *Service, log *logger.Logger) {
	c.Handle(contracts.KitchenNewOrder, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.NewOrderMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode new-order payload", err)
			return contracts.Fail(400, "malformed new-order payload")
		}
		result, err := svc.NewOrder(ctx, msg.OrderID)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Recipe picked, ingredients requested.", result)
	})

	c.Handle(contracts.KitchenGetRecipes, func(ctx context.Context, body []byte) contracts.Response {
		views, err := svc.GetRecipes(ctx)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Recipes retrieved.", views)
	})

	c.Handle(contracts.KitchenGetRecipeByID, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.GetByIDMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode get-recipe payload", err)
			return contracts.Fail(400, "malformed get-recipe payload")
		}
		view, err := svc.GetRecipeByID(ctx, msg.ID)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Recipe retrieved.", view)
	})

	c.Handle(contracts.KitchenRetryOrderCheck, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.OrderCheckMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode order-check payload", err)
			return contracts.Fail(400, "malformed order-check payload")
		}
		result, err := svc.CheckOrder(ctx, msg)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Order status checked.", result)
	})
}
