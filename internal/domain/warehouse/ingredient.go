package warehouse

import "time"

// Ingredient is stock-keeping reference data owned by the warehouse.
type Ingredient struct {
	ID    string
	Name  string
	Image string
	Stock Stock
}

// Stock is the on-hand quantity of one ingredient. The quantity is never
// negative; only the reservation engine mutates it, inside a transaction.
type Stock struct {
	IngredientID string
	Quantity     int
}

// MarketPurchase is one append-only audit record of an external restock buy.
type MarketPurchase struct {
	ID           string
	IngredientID string
	Quantity     int
	CreatedAt    time.Time
}
