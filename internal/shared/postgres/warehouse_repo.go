package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"restaurant-fulfillment/internal/domain/warehouse"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
)

// IngredientsRepo owns ingredient and stock rows.
type IngredientsRepo struct{}

// NewIngredientsRepo constructs a new IngredientsRepo.
func NewIngredientsRepo() ports.IngredientRepository {
	return &IngredientsRepo{}
}

// List returns all ingredients joined with their stock.
func (r *IngredientsRepo) List(ctx context.Context) ([]warehouse.Ingredient, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT i.id, i.name, i.image, s.quantity
		FROM ingredients i
		JOIN stock s ON s.ingredient_id = i.id
		ORDER BY i.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []warehouse.Ingredient
	for rows.Next() {
		var ing warehouse.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Image, &ing.Stock.Quantity); err != nil {
			return nil, err
		}
		ing.Stock.IngredientID = ing.ID
		out = append(out, ing)
	}
	return out, rows.Err()
}

// GetByID returns one ingredient with its stock.
func (r *IngredientsRepo) GetByID(ctx context.Context, id string) (*warehouse.Ingredient, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var ing warehouse.Ingredient
	err = tx.QueryRow(ctx, `
		SELECT i.id, i.name, i.image, s.quantity
		FROM ingredients i
		JOIN stock s ON s.ingredient_id = i.id
		WHERE i.id = $1
	`, id).Scan(&ing.ID, &ing.Name, &ing.Image, &ing.Stock.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("ingredient not found")
	}
	if err != nil {
		return nil, err
	}
	ing.Stock.IngredientID = ing.ID
	return &ing, nil
}

// LockStock reads an ingredient's quantity under FOR UPDATE so concurrent
// reservations for the same ingredient serialize on the row.
func (r *IngredientsRepo) LockStock(ctx context.Context, ingredientID string) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var qty int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM stock
		WHERE ingredient_id = $1
		FOR UPDATE
	`, ingredientID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("ingredient not found")
	}
	return qty, err
}

// AddStock increments an ingredient's quantity.
func (r *IngredientsRepo) AddStock(ctx context.Context, ingredientID string, qty int) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE stock
		SET quantity = quantity + $2
		WHERE ingredient_id = $1
	`, ingredientID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ingredient not found")
	}
	return nil
}

// TakeStock decrements an ingredient's quantity. The quantity CHECK
// constraint rejects any write that would go negative.
func (r *IngredientsRepo) TakeStock(ctx context.Context, ingredientID string, qty int) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE stock
		SET quantity = quantity - $2
		WHERE ingredient_id = $1
	`, ingredientID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ingredient not found")
	}
	return nil
}

// MarketRepo keeps the restock audit trail.
type MarketRepo struct{}

// NewMarketRepo constructs a new MarketRepo.
func NewMarketRepo() ports.MarketRepository {
	return &MarketRepo{}
}

// RecordPurchase appends one restock buy.
func (r *MarketRepo) RecordPurchase(ctx context.Context, ingredientID string, qty int) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO market_purchases (ingredient_id, quantity)
		VALUES ($1, $2)
	`, ingredientID, qty)
	return err
}

// ListPurchases returns one page of the audit trail, newest first, plus
// the total count.
func (r *MarketRepo) ListPurchases(ctx context.Context, page, limit int) ([]warehouse.MarketPurchase, int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM market_purchases`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, ingredient_id, quantity, created_at
		FROM market_purchases
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []warehouse.MarketPurchase
	for rows.Next() {
		var p warehouse.MarketPurchase
		if err := rows.Scan(&p.ID, &p.IngredientID, &p.Quantity, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
