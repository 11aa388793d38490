package orders

// OrderStatus represents where an order sits in its fulfillment lifecycle.
type OrderStatus string

const (
	StatusReceived              OrderStatus = "RECEIVED"
	StatusRequestingIngredients OrderStatus = "REQUESTING_INGREDIENTS"
	StatusWaitingForIngredients OrderStatus = "WAITING_FOR_INGREDIENTS"
	StatusDeliveredIngredients  OrderStatus = "DELIVERED_INGREDIENTS"
	StatusPreparing             OrderStatus = "PREPARING"
	StatusCompleted             OrderStatus = "COMPLETED"
)

// rank orders statuses along the fulfillment path. WAITING and DELIVERED
// are alternative outcomes of the same step, WAITING ranking lower because
// an order can still move from waiting to delivered but never back.
var rank = map[OrderStatus]int{
	StatusReceived:              0,
	StatusRequestingIngredients: 1,
	StatusWaitingForIngredients: 2,
	StatusDeliveredIngredients:  3,
	StatusPreparing:             4,
	StatusCompleted:             5,
}

// Valid reports whether s is a known status.
func Valid(s OrderStatus) bool {
	_, ok := rank[s]
	return ok
}

// CanAdvance reports whether moving from -> to keeps the lifecycle
// monotonic. Re-applying the current status is allowed; moving backward
// never is.
func CanAdvance(from, to OrderStatus) bool {
	rf, okf := rank[from]
	rt, okt := rank[to]
	return okf && okt && rt >= rf
}

// Terminal reports whether s ends the lifecycle.
func Terminal(s OrderStatus) bool {
	return s == StatusCompleted
}
