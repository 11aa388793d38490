package orders

import "testing"

func TestValid(t *testing.T) {
	for _, s := range []OrderStatus{
		StatusReceived,
		StatusRequestingIngredients,
		StatusWaitingForIngredients,
		StatusDeliveredIngredients,
		StatusPreparing,
		StatusCompleted,
	} {
		if !Valid(s) {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	for _, s := range []OrderStatus{"", "CANCELLED", "received", "DONE"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"received to requesting", StatusReceived, StatusRequestingIngredients, true},
		{"requesting to waiting", StatusRequestingIngredients, StatusWaitingForIngredients, true},
		{"requesting to delivered skips waiting", StatusRequestingIngredients, StatusDeliveredIngredients, true},
		{"waiting to delivered", StatusWaitingForIngredients, StatusDeliveredIngredients, true},
		{"delivered to preparing", StatusDeliveredIngredients, StatusPreparing, true},
		{"preparing to completed", StatusPreparing, StatusCompleted, true},
		{"received straight to completed", StatusReceived, StatusCompleted, true},
		{"same status is allowed", StatusPreparing, StatusPreparing, true},
		{"completed cannot regress", StatusCompleted, StatusPreparing, false},
		{"preparing cannot regress", StatusPreparing, StatusReceived, false},
		{"delivered cannot regress to waiting", StatusDeliveredIngredients, StatusWaitingForIngredients, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAdvance(tt.from, tt.to); got != tt.want {
				t.Errorf("CanAdvance(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(StatusCompleted) {
		t.Error("Terminal(COMPLETED) = false, want true")
	}
	for _, s := range []OrderStatus{
		StatusReceived,
		StatusRequestingIngredients,
		StatusWaitingForIngredients,
		StatusDeliveredIngredients,
		StatusPreparing,
	} {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}
