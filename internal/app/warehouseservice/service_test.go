package warehouseservice

import (
	"context"
	"testing"
	"time"

	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/domain/warehouse"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeIngredients struct {
	stock map[string]int
	names map[string]string
}

func (f *fakeIngredients) List(ctx context.Context) ([]warehouse.Ingredient, error) {
	var out []warehouse.Ingredient
	for id, qty := range f.stock {
		out = append(out, warehouse.Ingredient{
			ID: id, Name: f.names[id],
			Stock: warehouse.Stock{IngredientID: id, Quantity: qty},
		})
	}
	return out, nil
}

func (f *fakeIngredients) GetByID(ctx context.Context, id string) (*warehouse.Ingredient, error) {
	qty, ok := f.stock[id]
	if !ok {
		return nil, apperr.NotFound("ingredient not found")
	}
	return &warehouse.Ingredient{
		ID: id, Name: f.names[id],
		Stock: warehouse.Stock{IngredientID: id, Quantity: qty},
	}, nil
}

func (f *fakeIngredients) LockStock(ctx context.Context, id string) (int, error) {
	qty, ok := f.stock[id]
	if !ok {
		return 0, apperr.NotFound("ingredient not found")
	}
	return qty, nil
}

func (f *fakeIngredients) AddStock(ctx context.Context, id string, qty int) error {
	f.stock[id] += qty
	return nil
}

func (f *fakeIngredients) TakeStock(ctx context.Context, id string, qty int) error {
	if f.stock[id] < qty {
		return apperr.New(apperr.CodeInternal, "stock check violated")
	}
	f.stock[id] -= qty
	return nil
}

type fakeMarketRepo struct {
	purchases []warehouse.MarketPurchase
}

func (f *fakeMarketRepo) RecordPurchase(ctx context.Context, ingredientID string, qty int) error {
	f.purchases = append(f.purchases, warehouse.MarketPurchase{
		ID: "p", IngredientID: ingredientID, Quantity: qty, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeMarketRepo) ListPurchases(ctx context.Context, page, limit int) ([]warehouse.MarketPurchase, int, error) {
	return f.purchases, len(f.purchases), nil
}

// fakeMarketAPI sells a fixed quantity per call, per ingredient name.
type fakeMarketAPI struct {
	sell  map[string]int
	calls int
}

func (f *fakeMarketAPI) Buy(ctx context.Context, name string) (int, error) {
	f.calls++
	return f.sell[name], nil
}

type published struct {
	exchange   string
	routingKey string
	payload    any
}

type fakePublisher struct {
	msgs []published
}

func (f *fakePublisher) Publish(exchange, routingKey string, payload any) error {
	f.msgs = append(f.msgs, published{exchange, routingKey, payload})
	return nil
}

type fakeScheduler struct {
	msgs []published
}

func (f *fakeScheduler) ScheduleRetry(exchange, routingKey string, payload any) error {
	f.msgs = append(f.msgs, published{exchange, routingKey, payload})
	return nil
}

type fixture struct {
	svc         *Service
	ingredients *fakeIngredients
	market      *fakeMarketRepo
	api         *fakeMarketAPI
	pub         *fakePublisher
	sched       *fakeScheduler
}

func newFixture(stock map[string]int, sell map[string]int) *fixture {
	names := make(map[string]string, len(stock))
	for id := range stock {
		names[id] = "name-" + id
	}
	ingredients := &fakeIngredients{stock: stock, names: names}
	market := &fakeMarketRepo{}
	api := &fakeMarketAPI{sell: sell}
	pub := &fakePublisher{}
	sched := &fakeScheduler{}
	svc := New(fakeUOW{}, ingredients, market, api, pub, sched, logger.NewLogger("test"), 30)
	return &fixture{svc: svc, ingredients: ingredients, market: market, api: api, pub: pub, sched: sched}
}

func request(ingredients ...contracts.IngredientRequirement) contracts.IngredientsRequestMessage {
	return contracts.IngredientsRequestMessage{
		OrderID:     "order-1",
		RecipeID:    "recipe-1",
		Ingredients: ingredients,
		Attempt:     1,
	}
}

func (f *fixture) lastOrderUpdate(t *testing.T) contracts.UpdateOrderMessage {
	t.Helper()
	for i := len(f.pub.msgs) - 1; i >= 0; i-- {
		if f.pub.msgs[i].routingKey == contracts.OrdersUpdateOrder {
			return f.pub.msgs[i].payload.(contracts.UpdateOrderMessage)
		}
	}
	t.Fatal("no order update published")
	return contracts.UpdateOrderMessage{}
}

func TestReserveSufficientStock(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 5, "cheese": 3}, nil)

	result, err := f.svc.Reserve(context.Background(), request(
		contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 2},
		contracts.IngredientRequirement{IngredientID: "cheese", Quantity: 1},
	))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !result.Delivered {
		t.Fatal("Delivered = false, want true")
	}

	if got := f.ingredients.stock["tomato"]; got != 3 {
		t.Errorf("tomato stock = %d, want 3", got)
	}
	if got := f.ingredients.stock["cheese"]; got != 2 {
		t.Errorf("cheese stock = %d, want 2", got)
	}
	if f.api.calls != 0 {
		t.Errorf("market calls = %d, want 0", f.api.calls)
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("retries scheduled = %d, want 0", len(f.sched.msgs))
	}
	if got := f.lastOrderUpdate(t).Status; got != string(orders.StatusDeliveredIngredients) {
		t.Errorf("published status = %s, want DELIVERED_INGREDIENTS", got)
	}
}

func TestReserveRestocksFromMarket(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 1}, map[string]int{"name-tomato": 2})

	result, err := f.svc.Reserve(context.Background(), request(
		contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 3},
	))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !result.Delivered {
		t.Fatal("Delivered = false, want true after restock")
	}

	// missing 2, market sells 2 per call
	if f.api.calls != 1 {
		t.Errorf("market calls = %d, want 1", f.api.calls)
	}
	if len(f.market.purchases) != 1 || f.market.purchases[0].Quantity != 2 {
		t.Errorf("purchases = %+v, want one of quantity 2", f.market.purchases)
	}
	if got := f.ingredients.stock["tomato"]; got != 0 {
		t.Errorf("tomato stock = %d, want 0", got)
	}
}

func TestReserveShortfallParksRetry(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 1, "cheese": 5}, map[string]int{})

	result, err := f.svc.Reserve(context.Background(), request(
		contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 3},
		contracts.IngredientRequirement{IngredientID: "cheese", Quantity: 2},
	))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if result.Delivered {
		t.Fatal("Delivered = true, want false")
	}

	// all-or-none: the cheese that was available must not be taken
	if got := f.ingredients.stock["cheese"]; got != 5 {
		t.Errorf("cheese stock = %d, want 5 (no partial decrement)", got)
	}
	if got := f.ingredients.stock["tomato"]; got != 1 {
		t.Errorf("tomato stock = %d, want 1", got)
	}

	if got := f.lastOrderUpdate(t).Status; got != string(orders.StatusWaitingForIngredients) {
		t.Errorf("published status = %s, want WAITING_FOR_INGREDIENTS", got)
	}

	if len(f.sched.msgs) != 1 {
		t.Fatalf("retries scheduled = %d, want 1", len(f.sched.msgs))
	}
	retry := f.sched.msgs[0]
	if retry.exchange != contracts.WarehouseRetryExchange || retry.routingKey != contracts.WarehouseRetryIngredients {
		t.Errorf("retry routed to %s/%s", retry.exchange, retry.routingKey)
	}
	if got := retry.payload.(contracts.IngredientsRequestMessage).Attempt; got != 2 {
		t.Errorf("retry attempt = %d, want 2", got)
	}
}

func TestReserveStopsAtAttemptCap(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 0}, map[string]int{})

	msg := request(contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 1})
	msg.Attempt = 30

	result, err := f.svc.Reserve(context.Background(), msg)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if result.Delivered {
		t.Fatal("Delivered = true, want false")
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("retries scheduled = %d, want 0 at the cap", len(f.sched.msgs))
	}
}

func TestReserveMergesDuplicateLines(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 3}, nil)

	result, err := f.svc.Reserve(context.Background(), request(
		contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 2},
		contracts.IngredientRequirement{IngredientID: "tomato", Quantity: 1},
	))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !result.Delivered {
		t.Fatal("Delivered = false, want true")
	}
	if got := f.ingredients.stock["tomato"]; got != 0 {
		t.Errorf("tomato stock = %d, want 0 after merged decrement", got)
	}
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(map[string]int{}, nil)

	if _, err := f.svc.Reserve(context.Background(), contracts.IngredientsRequestMessage{}); err == nil {
		t.Error("Reserve with empty message: want error")
	}
	if _, err := f.svc.Reserve(context.Background(), contracts.IngredientsRequestMessage{OrderID: "o"}); err == nil {
		t.Error("Reserve with no ingredients: want error")
	}
}

func TestGetMarketHistoryResolvesNames(t *testing.T) {
	f := newFixture(map[string]int{"tomato": 1}, nil)
	f.market.purchases = []warehouse.MarketPurchase{
		{ID: "p1", IngredientID: "tomato", Quantity: 3, CreatedAt: time.Now()},
	}

	views, meta, err := f.svc.GetMarketHistory(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("GetMarketHistory: %v", err)
	}
	if meta.Total != 1 || len(views) != 1 {
		t.Fatalf("got %d views, total %d, want 1/1", len(views), meta.Total)
	}
	if views[0].Ingredient != "name-tomato" {
		t.Errorf("ingredient name = %q, want %q", views[0].Ingredient, "name-tomato")
	}
}
