package kitchen

// Recipe is read-only reference data owned by the kitchen. Orders get one
// assigned at random on creation.
type Recipe struct {
	ID          string
	Name        string
	Description string
	Image       string
	Ingredients []RecipeIngredient
}

// RecipeIngredient is one required ingredient line of a recipe.
type RecipeIngredient struct {
	IngredientID string
	Quantity     int
}
