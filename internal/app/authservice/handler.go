package authservice

import (
	"context"
	"encoding/json"

	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
	"restaurant-fulfillment/internal/shared/rabbitmq"
)

// RegisterHandlers binds the auth routing keys to the service.
func RegisterHandlers(c *rabbitmq.Consumer, svc *Service, log *logger.Logger) {
	c.Handle(contracts.AuthLogin, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.LoginMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode login payload", err)
			return contracts.Fail(400, "malformed login payload")
		}
		result, err := svc.Login(ctx, msg.Username, msg.Password)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Logged in.", result)
	})

	c.Handle(contracts.AuthVerifyToken, func(ctx context.Context, body []byte) contracts.Response {
		var msg contracts.VerifyTokenMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error(ctx, "message_decode_failed", "Failed to decode verify-token payload", err)
			return contracts.Fail(400, "malformed verify-token payload")
		}
		result, err := svc.VerifyToken(ctx, msg.Token)
		if err != nil {
			return contracts.FromError(err)
		}
		return contracts.OK("Token valid.", result)
	})
}
