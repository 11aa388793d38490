package kitchenservice

import (
	"context"
	"encoding/json"
	"testing"

	"restaurant-fulfillment/internal/domain/kitchen"
	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

type fakeUOW struct{}

func (fakeUOW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRecipes struct {
	recipes []kitchen.Recipe
}

func (f *fakeRecipes) Random(ctx context.Context) (*kitchen.Recipe, error) {
	if len(f.recipes) == 0 {
		return nil, apperr.NotFound("no recipes available")
	}
	return &f.recipes[0], nil
}

func (f *fakeRecipes) GetByID(ctx context.Context, id string) (*kitchen.Recipe, error) {
	for i := range f.recipes {
		if f.recipes[i].ID == id {
			return &f.recipes[i], nil
		}
	}
	return nil, apperr.NotFound("recipe not found")
}

func (f *fakeRecipes) List(ctx context.Context) ([]kitchen.Recipe, error) {
	return f.recipes, nil
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

func (f *fakePublisher) byKey(key string) []published {
	var out []published
	for _, m := range f.msgs {
		if m.routingKey == key {
			out = append(out, m)
		}
	}
	return out
}

type fakeScheduler struct {
	msgs []published
}

func (f *fakeScheduler) ScheduleRetry(exchange, routingKey string, payload any) error {
	f.msgs = append(f.msgs, published{exchange, routingKey, payload})
	return nil
}

// fakeRPC answers calls from a routing-key keyed table.
type fakeRPC struct {
	replies map[string]contracts.Response
	err     error
}

func (f *fakeRPC) Call(ctx context.Context, exchange, routingKey string, payload any) (contracts.Response, error) {
	if f.err != nil {
		return contracts.Response{}, f.err
	}
	if resp, ok := f.replies[routingKey]; ok {
		return resp, nil
	}
	return contracts.Fail(404, "no reply configured"), nil
}

type fixture struct {
	svc   *Service
	pub   *fakePublisher
	sched *fakeScheduler
	rpc   *fakeRPC
}

func newFixture(recipes []kitchen.Recipe) *fixture {
	pub := &fakePublisher{}
	sched := &fakeScheduler{}
	rpc := &fakeRPC{replies: map[string]contracts.Response{
		contracts.WarehouseGetIngredientByID: contracts.OK("ok", map[string]string{
			"id": "ing-1", "name": "tomato", "image": "",
		}),
	}}
	svc := New(fakeUOW{}, &fakeRecipes{recipes: recipes}, pub, rpc, sched, logger.NewLogger("test"), 30)
	return &fixture{svc: svc, pub: pub, sched: sched, rpc: rpc}
}

func orderReply(id, status string) contracts.Response {
	return contracts.OK("ok", map[string]any{"id": id, "status": status, "recipeId": "recipe-1"})
}

func testRecipe() kitchen.Recipe {
	return kitchen.Recipe{
		ID:   "recipe-1",
		Name: "Sopa de Tomate",
		Ingredients: []kitchen.RecipeIngredient{
			{IngredientID: "ing-1", Quantity: 2},
		},
	}
}

func TestNewOrderStartsFlow(t *testing.T) {
	f := newFixture([]kitchen.Recipe{testRecipe()})

	result, err := f.svc.NewOrder(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if result.RecipeID != "recipe-1" {
		t.Errorf("RecipeID = %s, want recipe-1", result.RecipeID)
	}
	if result.Status != string(orders.StatusRequestingIngredients) {
		t.Errorf("Status = %s, want REQUESTING_INGREDIENTS", result.Status)
	}

	updates := f.pub.byKey(contracts.OrdersUpdateOrder)
	if len(updates) != 1 {
		t.Fatalf("order updates published = %d, want 1", len(updates))
	}
	if got := updates[0].payload.(contracts.UpdateOrderMessage).Status; got != string(orders.StatusRequestingIngredients) {
		t.Errorf("published status = %s, want REQUESTING_INGREDIENTS", got)
	}

	requests := f.pub.byKey(contracts.WarehouseIngredientsRequest)
	if len(requests) != 1 {
		t.Fatalf("warehouse requests published = %d, want 1", len(requests))
	}
	req := requests[0].payload.(contracts.IngredientsRequestMessage)
	if req.Attempt != 1 || len(req.Ingredients) != 1 || req.Ingredients[0].Quantity != 2 {
		t.Errorf("warehouse request = %+v", req)
	}

	if len(f.sched.msgs) != 1 {
		t.Fatalf("polls scheduled = %d, want 1", len(f.sched.msgs))
	}
	poll := f.sched.msgs[0].payload.(contracts.OrderCheckMessage)
	if poll.OrderID != "order-1" || poll.Attempt != 1 {
		t.Errorf("poll = %+v", poll)
	}
}

func TestNewOrderNoRecipes(t *testing.T) {
	f := newFixture(nil)
	if _, err := f.svc.NewOrder(context.Background(), "order-1"); err == nil {
		t.Fatal("NewOrder with empty catalog: want error")
	}
}

func TestSchedulePollDedup(t *testing.T) {
	f := newFixture([]kitchen.Recipe{testRecipe()})

	f.svc.schedulePoll(context.Background(), "order-1", 1)
	f.svc.schedulePoll(context.Background(), "order-1", 1)

	if len(f.sched.msgs) != 1 {
		t.Errorf("polls scheduled = %d, want 1 (duplicate discarded)", len(f.sched.msgs))
	}
}

func TestCheckOrderAdvancesDelivered(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = orderReply("order-1", string(orders.StatusDeliveredIngredients))

	result, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1", Attempt: 3})
	if err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if result.Status != string(orders.StatusPreparing) {
		t.Errorf("result status = %s, want PREPARING", result.Status)
	}

	updates := f.pub.byKey(contracts.OrdersUpdateOrder)
	if len(updates) != 1 || updates[0].payload.(contracts.UpdateOrderMessage).Status != string(orders.StatusPreparing) {
		t.Errorf("updates = %+v, want one PREPARING", updates)
	}

	if len(f.sched.msgs) != 1 {
		t.Fatalf("polls scheduled = %d, want 1", len(f.sched.msgs))
	}
	if got := f.sched.msgs[0].payload.(contracts.OrderCheckMessage).Attempt; got != 4 {
		t.Errorf("rescheduled attempt = %d, want 4", got)
	}
}

func TestCheckOrderCompletesPreparing(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = orderReply("order-1", string(orders.StatusPreparing))

	result, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1", Attempt: 5})
	if err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if result.Status != string(orders.StatusCompleted) {
		t.Errorf("result status = %s, want COMPLETED", result.Status)
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("polls scheduled = %d, want 0 after completion", len(f.sched.msgs))
	}
}

func TestCheckOrderTerminalStopsLoop(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = orderReply("order-1", string(orders.StatusCompleted))

	if _, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1", Attempt: 2}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if len(f.pub.msgs) != 0 {
		t.Errorf("updates published = %d, want 0 for terminal order", len(f.pub.msgs))
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("polls scheduled = %d, want 0 for terminal order", len(f.sched.msgs))
	}
}

func TestCheckOrderWaitingKeepsPolling(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = orderReply("order-1", string(orders.StatusWaitingForIngredients))

	if _, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1", Attempt: 1}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if len(f.pub.msgs) != 0 {
		t.Errorf("updates published = %d, want 0 while waiting", len(f.pub.msgs))
	}
	if len(f.sched.msgs) != 1 {
		t.Errorf("polls scheduled = %d, want 1", len(f.sched.msgs))
	}
}

func TestCheckOrderStopsAtAttemptCap(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = orderReply("order-1", string(orders.StatusWaitingForIngredients))

	if _, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1", Attempt: 30}); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("polls scheduled = %d, want 0 at the cap", len(f.sched.msgs))
	}

	// the slot is freed; a new flow can poll this order again
	f.svc.schedulePoll(context.Background(), "order-1", 1)
	if len(f.sched.msgs) != 1 {
		t.Errorf("polls scheduled after escalation = %d, want 1", len(f.sched.msgs))
	}
}

func TestGetRecipeByIDEnriches(t *testing.T) {
	f := newFixture([]kitchen.Recipe{testRecipe()})

	view, err := f.svc.GetRecipeByID(context.Background(), "recipe-1")
	if err != nil {
		t.Fatalf("GetRecipeByID: %v", err)
	}
	if len(view.Ingredients) != 1 {
		t.Fatalf("ingredients = %d, want 1", len(view.Ingredients))
	}
	if view.Ingredients[0].Name != "tomato" || view.Ingredients[0].Quantity != 2 {
		t.Errorf("ingredient = %+v", view.Ingredients[0])
	}
}

func TestGetRecipeByIDSkipsUnresolvedIngredient(t *testing.T) {
	f := newFixture([]kitchen.Recipe{testRecipe()})
	f.rpc.replies[contracts.WarehouseGetIngredientByID] = contracts.Fail(404, "ingredient not found")

	view, err := f.svc.GetRecipeByID(context.Background(), "recipe-1")
	if err != nil {
		t.Fatalf("GetRecipeByID: %v", err)
	}
	if len(view.Ingredients) != 0 {
		t.Errorf("ingredients = %d, want 0 when warehouse cannot resolve", len(view.Ingredients))
	}
}

func TestCheckOrderMalformedReply(t *testing.T) {
	f := newFixture(nil)
	f.rpc.replies[contracts.OrdersGetOrderByID] = contracts.Response{
		Success: true, Status: 200, Data: json.RawMessage(`{"id":`),
	}

	if _, err := f.svc.CheckOrder(context.Background(), contracts.OrderCheckMessage{OrderID: "order-1"}); err == nil {
		t.Fatal("CheckOrder with malformed reply: want error")
	}
	if len(f.sched.msgs) != 0 {
		t.Errorf("polls scheduled = %d, want 0 after decode failure", len(f.sched.msgs))
	}
}
