package warehouseservice

import (
	"context"
	"sort"
	"time"

	"restaurant-fulfillment/internal/domain/orders"
	"restaurant-fulfillment/internal/domain/warehouse"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
	"restaurant-fulfillment/internal/shared/contracts"
	"restaurant-fulfillment/internal/shared/logger"
)

// Service runs the reservation engine and the warehouse read side.
type Service struct {
	uow         ports.UnitOfWork
	ingredients ports.IngredientRepository
	market      ports.MarketRepository
	marketAPI   ports.MarketClient
	pub         ports.Publisher
	retry       ports.RetryScheduler
	logger      *logger.Logger
	maxAttempts int
}

func New(
	uow ports.UnitOfWork,
	ingredients ports.IngredientRepository,
	market ports.MarketRepository,
	marketAPI ports.MarketClient,
	pub ports.Publisher,
	retry ports.RetryScheduler,
	log *logger.Logger,
	maxAttempts int,
) *Service {
	return &Service{
		uow:         uow,
		ingredients: ingredients,
		market:      market,
		marketAPI:   marketAPI,
		pub:         pub,
		retry:       retry,
		logger:      log,
		maxAttempts: maxAttempts,
	}
}

// IngredientView is the reply shape for ingredient queries.
type IngredientView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Stock int    `json:"stock"`
}

// MarketPurchaseView is one row of the restock audit trail.
type MarketPurchaseView struct {
	ID           string    `json:"id"`
	IngredientID string    `json:"ingredientId"`
	Ingredient   string    `json:"ingredient"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ReserveResult reports the outcome of one reservation attempt.
type ReserveResult struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Delivered bool   `json:"delivered"`
	Attempt   int    `json:"attempt"`
}

type shortfall struct {
	ingredientID string
	name         string
	missing      int
}

// Reserve attempts to hand a full set of ingredients to the kitchen. The
// decrement is all-or-none: either every requested ingredient had enough
// stock under lock and all were taken, or nothing was taken and the
// request is parked for a delayed retry after buying from the market.
func (s *Service) Reserve(ctx context.Context, msg contracts.IngredientsRequestMessage) (ReserveResult, error) {
	if msg.OrderID == "" {
		return ReserveResult{}, apperr.Validation("orderId is required")
	}
	if len(msg.Ingredients) == 0 {
		return ReserveResult{}, apperr.Validation("ingredients list is empty")
	}
	attempt := msg.Attempt
	if attempt < 1 {
		attempt = 1
	}

	needs := normalize(msg.Ingredients)

	reserved, short, err := s.tryTake(ctx, needs)
	if err != nil {
		return ReserveResult{}, err
	}

	if reserved {
		if err := s.notifyOrder(ctx, msg, orders.StatusDeliveredIngredients); err != nil {
			return ReserveResult{}, err
		}
		s.logger.Info(ctx, "ingredients_delivered", "Ingredients reserved for order", map[string]any{
			"order_id": msg.OrderID,
			"attempt":  attempt,
		})
		return ReserveResult{OrderID: msg.OrderID, Status: string(orders.StatusDeliveredIngredients), Delivered: true, Attempt: attempt}, nil
	}

	// Stock was short. Buy the missing quantities outside any row lock,
	// then try the whole set once more before parking the request.
	s.restock(ctx, short)

	reserved, short, err = s.tryTake(ctx, needs)
	if err != nil {
		return ReserveResult{}, err
	}
	if reserved {
		if err := s.notifyOrder(ctx, msg, orders.StatusDeliveredIngredients); err != nil {
			return ReserveResult{}, err
		}
		s.logger.Info(ctx, "ingredients_delivered", "Ingredients reserved after market restock", map[string]any{
			"order_id": msg.OrderID,
			"attempt":  attempt,
		})
		return ReserveResult{OrderID: msg.OrderID, Status: string(orders.StatusDeliveredIngredients), Delivered: true, Attempt: attempt}, nil
	}

	if err := s.notifyOrder(ctx, msg, orders.StatusWaitingForIngredients); err != nil {
		return ReserveResult{}, err
	}
	s.scheduleRetry(ctx, msg, attempt, short)
	return ReserveResult{OrderID: msg.OrderID, Status: string(orders.StatusWaitingForIngredients), Delivered: false, Attempt: attempt}, nil
}

// tryTake is the transactional core. It locks every requested stock row in
// a fixed order, verifies all quantities, and only then decrements. When
// any ingredient is short the transaction changes nothing and the
// shortfall list is returned.
func (s *Service) tryTake(ctx context.Context, needs []contracts.IngredientRequirement) (bool, []shortfall, error) {
	var short []shortfall
	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		for _, need := range needs {
			have, err := s.ingredients.LockStock(ctx, need.IngredientID)
			if err != nil {
				return err
			}
			if have < need.Quantity {
				short = append(short, shortfall{ingredientID: need.IngredientID, missing: need.Quantity - have})
			}
		}
		if len(short) > 0 {
			// roll back by not touching anything; locks release on commit
			return nil
		}
		for _, need := range needs {
			if err := s.ingredients.TakeStock(ctx, need.IngredientID, need.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return len(short) == 0, short, nil
}

// restock buys missing quantities from the farmers market. Each successful
// buy lands in its own transaction so partial progress survives even when
// a later buy fails. Market failures degrade to zero bought.
func (s *Service) restock(ctx context.Context, short []shortfall) {
	for i := range short {
		ing, err := s.lookupIngredient(ctx, short[i].ingredientID)
		if err != nil {
			s.logger.Error(ctx, "ingredient_lookup_failed", "Cannot resolve ingredient for market buy", err)
			continue
		}
		short[i].name = ing.Name

		missing := short[i].missing
		for missing > 0 {
			sold, err := s.marketAPI.Buy(ctx, ing.Name)
			if err != nil {
				s.logger.Error(ctx, "market_buy_failed", "Farmers market call failed", err)
				break
			}
			if sold == 0 {
				// market is out too; the delayed retry will ask again
				break
			}
			err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
				if err := s.ingredients.AddStock(ctx, ing.ID, sold); err != nil {
					return err
				}
				return s.market.RecordPurchase(ctx, ing.ID, sold)
			})
			if err != nil {
				s.logger.Error(ctx, "restock_persist_failed", "Failed to record market purchase", err)
				break
			}
			s.logger.Info(ctx, "market_purchase", "Bought ingredient from farmers market", map[string]any{
				"ingredient": ing.Name,
				"quantity":   sold,
			})
			missing -= sold
		}
	}
}

func (s *Service) notifyOrder(ctx context.Context, msg contracts.IngredientsRequestMessage, status orders.OrderStatus) error {
	update := contracts.UpdateOrderMessage{ID: msg.OrderID, RecipeID: msg.RecipeID, Status: string(status)}
	if err := s.pub.Publish(contracts.OrdersExchange, contracts.OrdersUpdateOrder, update); err != nil {
		s.logger.Error(ctx, "rabbitmq_publish_failed", "failed to publish order update", err)
		return err
	}
	return nil
}

func (s *Service) scheduleRetry(ctx context.Context, msg contracts.IngredientsRequestMessage, attempt int, short []shortfall) {
	next := attempt + 1
	if next > s.maxAttempts {
		s.logger.Error(ctx, "retry_attempts_exhausted",
			"Ingredient reservation exceeded the attempt cap; order stays waiting",
			apperr.New(apperr.CodeInternal, "reservation attempts exhausted for order "+msg.OrderID))
		return
	}
	retryMsg := msg
	retryMsg.Attempt = next
	err := s.retry.ScheduleRetry(contracts.WarehouseRetryExchange, contracts.WarehouseRetryIngredients, retryMsg)
	if err != nil {
		s.logger.Error(ctx, "retry_schedule_failed", "failed to park reservation in retry queue", err)
		return
	}
	s.logger.Info(ctx, "reservation_parked", "Stock still short, reservation parked for retry", map[string]any{
		"order_id": msg.OrderID,
		"attempt":  next,
		"missing":  len(short),
	})
}

// normalize merges duplicate ingredient lines and sorts by ingredient id
// so every reservation locks rows in the same order.
func normalize(reqs []contracts.IngredientRequirement) []contracts.IngredientRequirement {
	byID := make(map[string]int, len(reqs))
	for _, r := range reqs {
		byID[r.IngredientID] += r.Quantity
	}
	out := make([]contracts.IngredientRequirement, 0, len(byID))
	for id, qty := range byID {
		out = append(out, contracts.IngredientRequirement{IngredientID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out
}

func (s *Service) lookupIngredient(ctx context.Context, id string) (*warehouse.Ingredient, error) {
	var ing *warehouse.Ingredient
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		ing, err = s.ingredients.GetByID(txCtx, id)
		return err
	})
	return ing, err
}

// GetIngredients lists every ingredient with its current stock.
func (s *Service) GetIngredients(ctx context.Context) ([]IngredientView, error) {
	var list []warehouse.Ingredient
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		list, err = s.ingredients.List(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	views := make([]IngredientView, 0, len(list))
	for _, ing := range list {
		views = append(views, ingredientView(&ing))
	}
	return views, nil
}

func (s *Service) GetIngredientByID(ctx context.Context, id string) (IngredientView, error) {
	if id == "" {
		return IngredientView{}, apperr.Validation("ingredient id is required")
	}
	ing, err := s.lookupIngredient(ctx, id)
	if err != nil {
		return IngredientView{}, err
	}
	return ingredientView(ing), nil
}

// GetMarketHistory pages through the restock audit trail, newest first,
// with ingredient names resolved for display.
func (s *Service) GetMarketHistory(ctx context.Context, page, limit int) ([]MarketPurchaseView, contracts.PageMeta, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	var purchases []warehouse.MarketPurchase
	var total int
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		purchases, total, err = s.market.ListPurchases(txCtx, page, limit)
		return err
	})
	if err != nil {
		return nil, contracts.PageMeta{}, err
	}
	names := make(map[string]string)
	views := make([]MarketPurchaseView, 0, len(purchases))
	for _, p := range purchases {
		name, ok := names[p.IngredientID]
		if !ok {
			if ing, err := s.lookupIngredient(ctx, p.IngredientID); err == nil {
				name = ing.Name
			}
			names[p.IngredientID] = name
		}
		views = append(views, MarketPurchaseView{
			ID:           p.ID,
			IngredientID: p.IngredientID,
			Ingredient:   name,
			Quantity:     p.Quantity,
			CreatedAt:    p.CreatedAt,
		})
	}
	return views, contracts.PageMeta{Total: total, Page: page, PerPage: limit}, nil
}

func ingredientView(ing *warehouse.Ingredient) IngredientView {
	return IngredientView{ID: ing.ID, Name: ing.Name, Image: ing.Image, Stock: ing.Stock.Quantity}
}
