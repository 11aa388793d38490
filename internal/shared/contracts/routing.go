package contracts

// Exchange names. All domain exchanges are direct and durable; the
// notifications exchange is a fanout shared by every service.
const (
	OrdersExchange        = "orders_exchange"
	KitchenExchange       = "kitchen_exchange"
	WarehouseExchange     = "warehouse_exchange"
	AuthExchange          = "auth_exchange"
	NotificationsExchange = "notifications_fanout"

	KitchenRetryExchange   = "kitchen_retry_exchange"
	WarehouseRetryExchange = "warehouse_retry_exchange"
)

// Queue names, one working queue per domain.
const (
	OrdersQueue        = "orders_queue"
	KitchenQueue       = "kitchen_queue"
	WarehouseQueue     = "warehouse_queue"
	AuthQueue          = "auth_queue"
	NotificationsQueue = "notifications_queue"

	KitchenRetryQueue   = "kitchen_retry_queue"
	WarehouseRetryQueue = "warehouse_retry_queue"
)

// Routing keys. The set is closed: every consumer builds its handler
// registry from these constants at startup.
const (
	// auth domain
	AuthLogin       = "auth.login"
	AuthVerifyToken = "auth.verifyToken"

	// kitchen domain
	KitchenNewOrder        = "kitchen.orders.newOrder"
	KitchenGetRecipes      = "kitchen.get.recipes"
	KitchenGetRecipeByID   = "kitchen.get.recipeById"
	KitchenRetryOrderCheck = "kitchen.retry.verificationOrderStatus"

	// warehouse domain
	WarehouseIngredientsRequest = "warehouse.ingredients.request"
	WarehouseRetryIngredients   = "warehouse.retry.ingredients"
	WarehouseGetIngredients     = "warehouse.get.ingredients"
	WarehouseGetIngredientByID  = "warehouse.get.ingredient.byId"
	WarehouseGetMarketHistory   = "warehouse.get.market-history"

	// orders domain
	OrdersCreateNewOrder = "orders.create.newOrder"
	OrdersUpdateOrder    = "orders.update.order"
	OrdersGetOrders      = "orders.get.orders"
	OrdersGetOrderByID   = "orders.get.orderById"
)
