package ports

import (
	"context"

	"restaurant-fulfillment/internal/domain/kitchen"
	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/domain/users"
	"restaurant-fulfillment/internal/domain/warehouse"
)

// UnitOfWork wraps a function in a DB transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists orders for the orders service. Orders are never
// deleted; updates only move status forward.
type OrderRepository interface {
	Create(ctx context.Context, o *orders.Order) error
	GetByID(ctx context.Context, id string) (*orders.Order, error)
	List(ctx context.Context, page, limit int) ([]orders.Order, int, error)
	Update(ctx context.Context, id string, recipeID *string, status orders.OrderStatus) (*orders.Order, error)
}

// RecipeRepository reads the kitchen's read-only recipe catalog.
type RecipeRepository interface {
	Random(ctx context.Context) (*kitchen.Recipe, error)
	GetByID(ctx context.Context, id string) (*kitchen.Recipe, error)
	List(ctx context.Context) ([]kitchen.Recipe, error)
}

// IngredientRepository owns ingredient and stock rows. LockStock must be
// called inside a transaction; it takes a row lock so concurrent
// reservations for the same ingredient serialize.
type IngredientRepository interface {
	List(ctx context.Context) ([]warehouse.Ingredient, error)
	GetByID(ctx context.Context, id string) (*warehouse.Ingredient, error)
	LockStock(ctx context.Context, ingredientID string) (int, error)
	AddStock(ctx context.Context, ingredientID string, qty int) error
	TakeStock(ctx context.Context, ingredientID string, qty int) error
}

// MarketRepository keeps the append-only restock audit trail.
type MarketRepository interface {
	RecordPurchase(ctx context.Context, ingredientID string, qty int) error
	ListPurchases(ctx context.Context, page, limit int) ([]warehouse.MarketPurchase, int, error)
}

// UserRepository reads operator accounts for the auth service.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	GetByID(ctx context.Context, id string) (*users.User, error)
}
