package warehouseservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFarmersMarketClientBuy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ingredient"); got != "tomato" {
			t.Errorf("ingredient query = %q, want tomato", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quantitySold":3}`))
	}))
	defer srv.Close()

	client := NewFarmersMarketClient(srv.URL)
	sold, err := client.Buy(context.Background(), "tomato")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if sold != 3 {
		t.Errorf("sold = %d, want 3", sold)
	}
}

func TestFarmersMarketClientZeroSold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quantitySold":0}`))
	}))
	defer srv.Close()

	sold, err := NewFarmersMarketClient(srv.URL).Buy(context.Background(), "lemon")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if sold != 0 {
		t.Errorf("sold = %d, want 0", sold)
	}
}

func TestFarmersMarketClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := NewFarmersMarketClient(srv.URL).Buy(context.Background(), "rice"); err == nil {
				t.Error("want error")
			}
		})
	}
}
