package contracts

import "encoding/json"

// Response is the reply envelope every handler sends back when the request
// carried a reply-to address. It mirrors the gateway-facing shape: success
// flag, HTTP-equivalent status, human message, optional data/meta.
type Response struct {
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *PageMeta       `json:"meta,omitempty"`
}

// PageMeta describes pagination of a list reply.
type PageMeta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// OK builds a success response with the given payload.
func OK(message string, data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Fail(500, "failed to encode response data")
	}
	return Response{Success: true, Status: 200, Message: message, Data: raw}
}

// OKPaged builds a success response carrying pagination meta.
func OKPaged(message string, data any, meta PageMeta) Response {
	resp := OK(message, data)
	if resp.Success {
		resp.Meta = &meta
	}
	return resp
}

// Fail builds a failure response with an HTTP-equivalent status code.
func Fail(status int, message string) Response {
	return Response{Success: false, Status: status, Message: message}
}

// NewOrderMessage asks the kitchen to pick a recipe for a freshly created order.
type NewOrderMessage struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status,omitempty"`
}

// UpdateOrderMessage moves an order forward in its lifecycle. Only the
// orders service applies it; every other domain just publishes it.
type UpdateOrderMessage struct {
	ID       string `json:"id"`
	RecipeID string `json:"recipeId,omitempty"`
	Status   string `json:"status"`
}

// IngredientRequirement is one line of a recipe's ingredient list.
type IngredientRequirement struct {
	IngredientID string `json:"ingredientId"`
	Quantity     int    `json:"quantity"`
}

// IngredientsRequestMessage asks the warehouse to reserve stock for an
// order. Attempt counts retry deliveries of the same reservation.
type IngredientsRequestMessage struct {
	OrderID     string                  `json:"orderId"`
	RecipeID    string                  `json:"recipeId"`
	Ingredients []IngredientRequirement `json:"ingredients"`
	Attempt     int                     `json:"attempt,omitempty"`
}

// OrderCheckMessage is the kitchen's self-requeued poll of an order's
// status. Attempt bounds the polling loop.
type OrderCheckMessage struct {
	OrderID string `json:"orderId"`
	Attempt int    `json:"attempt,omitempty"`
}

// LoginMessage carries credentials for auth.login.
type LoginMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyTokenMessage carries a token for auth.verifyToken.
type VerifyTokenMessage struct {
	Token string `json:"token"`
}

// GetByIDMessage is the shared {id} query payload.
type GetByIDMessage struct {
	ID string `json:"id"`
}

// PageMessage is the shared pagination query payload.
type PageMessage struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// OrderUpdatedNotification is broadcast on the notifications fanout after
// every applied order update. It carries the full updated record so
// subscribers need no follow-up query.
type OrderUpdatedNotification struct {
	ID        string  `json:"id"`
	RecipeID  *string `json:"recipeId"`
	OldStatus string  `json:"oldStatus"`
	NewStatus string  `json:"newStatus"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}
