package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"restaurant-fulfillment/internal/domain/kitchen"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
)

// RecipesRepo reads the kitchen's recipe catalog.
type RecipesRepo struct{}

// NewRecipesRepo constructs a new RecipesRepo.
func NewRecipesRepo() ports.RecipeRepository {
	return &RecipesRepo{}
}

// Random picks one recipe uniformly at random.
func (r *RecipesRepo) Random(ctx context.Context) (*kitchen.Recipe, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var id string
	err = tx.QueryRow(ctx, `
		SELECT id FROM recipes
		ORDER BY random()
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no recipes available")
	}
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// GetByID loads one recipe with its ordered ingredient list.
func (r *RecipesRepo) GetByID(ctx context.Context, id string) (*kitchen.Recipe, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var recipe kitchen.Recipe
	err = tx.QueryRow(ctx, `
		SELECT id, name, description, image
		FROM recipes
		WHERE id = $1
	`, id).Scan(&recipe.ID, &recipe.Name, &recipe.Description, &recipe.Image)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("recipe not found")
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT ingredient_id, quantity
		FROM recipe_ingredients
		WHERE recipe_id = $1
		ORDER BY position
	`, recipe.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line kitchen.RecipeIngredient
		if err := rows.Scan(&line.IngredientID, &line.Quantity); err != nil {
			return nil, err
		}
		recipe.Ingredients = append(recipe.Ingredients, line)
	}
	return &recipe, rows.Err()
}

// List returns all recipes with their ingredient lists.
func (r *RecipesRepo) List(ctx context.Context) ([]kitchen.Recipe, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT id FROM recipes ORDER BY name`)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]kitchen.Recipe, 0, len(ids))
	for _, id := range ids {
		recipe, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *recipe)
	}
	return out, nil
}
