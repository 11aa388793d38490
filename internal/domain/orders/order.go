package orders

import "time"

// Order is the aggregate owned by the orders service. Other domains never
// hold a copy; they see only the transient data carried in messages.
type Order struct {
	ID        string
	Status    OrderStatus
	RecipeID  *string // assigned by the kitchen after creation
	CreatedAt time.Time
	UpdatedAt time.Time
}
