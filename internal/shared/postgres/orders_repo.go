package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
)

// OrdersRepo implements persistence for orders using pgx and SQL.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// Create inserts a new order in RECEIVED state and fills in the generated
// id and timestamps.
func (r *OrdersRepo) Create(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO orders (status)
		VALUES ($1)
		RETURNING id, status, created_at, updated_at
	`, orders.StatusReceived).Scan(&order.ID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
}

// GetByID retrieves an order by id.
func (r *OrdersRepo) GetByID(ctx context.Context, id string) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		SELECT id, status, recipe_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.Status, &order.RecipeID, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one page of orders, newest first, plus the total count.
func (r *OrdersRepo) List(ctx context.Context, page, limit int) ([]orders.Order, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, status, recipe_id, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		var order orders.Order
		if err := rows.Scan(&order.ID, &order.Status, &order.RecipeID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, order)
	}
	return out, total, rows.Err()
}

// Update sets the status (and recipe when provided) and returns the
// updated row. Lifecycle checks happen in the service; the repo only
// writes forward what it was told.
func (r *OrdersRepo) Update(ctx context.Context, id string, recipeID *string, status orders.OrderStatus) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2,
		    recipe_id = COALESCE($3, recipe_id),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, status, recipe_id, created_at, updated_at
	`, id, status, recipeID).Scan(&order.ID, &order.Status, &order.RecipeID, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
