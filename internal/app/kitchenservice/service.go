package kitchenservice

import (
	"context"
	"encoding/json"

	"restaurant-fulfillment/internal/domain/kitchen"
	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

// Service is the kitchen side of the fulfillment saga: it assigns recipes
// to new orders, asks the warehouse for ingredients, and polls order
// status through its retry queue until the order completes.
type Service struct {
	uow         ports.UnitOfWork
	recipes     ports.RecipeRepository
	pub         ports.Publisher
	rpc         ports.RPCCaller
	retry       ports.RetryScheduler
	logger      *logger.Logger
	maxAttempts int
	polls       *pollRegistry
}

// New creates the kitchen service with its dependencies.
func New(
	uow ports.UnitOfWork,
	recipes ports.RecipeRepository,
	pub ports.Publisher,
	rpc ports.RPCCaller,
	retry ports.RetryScheduler,
	log *logger.Logger,
	maxAttempts int,
) *Service {
	return &Service{
		uow:         uow,
		recipes:     recipes,
		pub:         pub,
		rpc:         rpc,
		retry:       retry,
		logger:      log,
		maxAttempts: maxAttempts,
		polls:       newPollRegistry(),
	}
}

// RecipeIngredientView is one recipe line enriched with warehouse data.
type RecipeIngredientView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// RecipeView is the wire shape of one recipe.
type RecipeView struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Image       string                 `json:"image"`
	Ingredients []RecipeIngredientView `json:"ingredients"`
}

// NewOrderResult is the reply payload of kitchen.orders.newOrder.
type NewOrderResult struct {
	OrderID  string     `json:"orderId"`
	RecipeID string     `json:"recipeId"`
	Recipe   RecipeView `json:"recipe"`
	Status   string     `json:"status"`
}

// NewOrder picks a random recipe for the order, moves the order to
// REQUESTING_INGREDIENTS, forwards the ingredient list to the warehouse,
// and starts the status-poll loop for this order.
func (s *Service) NewOrder(ctx context.Context, orderID string) (NewOrderResult, error) {
	if orderID == "" {
		return NewOrderResult{}, apperr.Validation("orderId is required")
	}

	var recipe *kitchen.Recipe
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		recipe, err = s.recipes.Random(txCtx)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "recipe_selection_failed", "failed to pick a random recipe", err)
		return NewOrderResult{}, err
	}

	recipeView, err := s.enrich(ctx, recipe)
	if err != nil {
		return NewOrderResult{}, err
	}

	// order moves forward before the warehouse answers; the poll loop
	// picks it up from here
	err = s.pub.Publish(contracts.OrdersExchange, contracts.OrdersUpdateOrder, contracts.UpdateOrderMessage{
		ID:       orderID,
		RecipeID: recipe.ID,
		Status:   string(orders.StatusRequestingIngredients),
	})
	if err != nil {
		s.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish order update", err)
		return NewOrderResult{}, err
	}

	reqs := make([]contracts.IngredientRequirement, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		reqs = append(reqs, contracts.IngredientRequirement{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		})
	}
	err = s.pub.Publish(contracts.WarehouseExchange, contracts.WarehouseIngredientsRequest, contracts.IngredientsRequestMessage{
		OrderID:     orderID,
		RecipeID:    recipe.ID,
		Ingredients: reqs,
		Attempt:     1,
	})
	if err != nil {
		s.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish ingredient request", err)
		return NewOrderResult{}, err
	}

	s.schedulePoll(ctx, orderID, 1)

	s.logger.Info(ctx, "recipe_assigned", "Recipe assigned to order", map[string]any{
		"order_id":  orderID,
		"recipe_id": recipe.ID,
	})

	return NewOrderResult{
		OrderID:  orderID,
		RecipeID: recipe.ID,
		Recipe:   recipeView,
		Status:   string(orders.StatusRequestingIngredients),
	}, nil
}

// GetRecipes returns the catalog, each recipe enriched with ingredient
// names and images fetched from the warehouse.
func (s *Service) GetRecipes(ctx context.Context) ([]RecipeView, error) {
	var list []kitchen.Recipe
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		list, err = s.recipes.List(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}

	views := make([]RecipeView, 0, len(list))
	for i := range list {
		v, err := s.enrich(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetRecipeByID returns one enriched recipe.
func (s *Service) GetRecipeByID(ctx context.Context, id string) (RecipeView, error) {
	if id == "" {
		return RecipeView{}, apperr.Validation("recipe id is required")
	}

	var recipe *kitchen.Recipe
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		recipe, err = s.recipes.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return RecipeView{}, err
	}
	return s.enrich(ctx, recipe)
}

// enrich resolves ingredient names/images through the warehouse, one RPC
// per ingredient. An ingredient the warehouse cannot resolve is skipped,
// matching the degraded behavior of the read path.
func (s *Service) enrich(ctx context.Context, recipe *kitchen.Recipe) (RecipeView, error) {
	v := RecipeView{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Description: recipe.Description,
		Image:       recipe.Image,
	}

	for _, line := range recipe.Ingredients {
		resp, err := s.rpc.Call(ctx, contracts.WarehouseExchange, contracts.WarehouseGetIngredientByID,
			contracts.GetByIDMessage{ID: line.IngredientID})
		if err != nil {
			s.logger.Error(ctx, "rpc_call_failed", "warehouse did not answer ingredient lookup", err)
			return RecipeView{}, err
		}
		if !resp.Success {
			s.logger.Debug(ctx, "ingredient_lookup_failed", "Warehouse could not resolve ingredient",
				map[string]any{"ingredient_id": line.IngredientID, "message": resp.Message})
			continue
		}

		var ing struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Image string `json:"image"`
		}
		if err := json.Unmarshal(resp.Data, &ing); err != nil {
			s.logger.Error(ctx, "message_decode_failed", "failed to decode ingredient reply", err)
			continue
		}
		v.Ingredients = append(v.Ingredients, RecipeIngredientView{
			ID:       ing.ID,
			Name:     ing.Name,
			Image:    ing.Image,
			Quantity: line.Quantity,
		})
	}

	return v, nil
}
