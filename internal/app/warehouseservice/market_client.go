package warehouseservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"restaurant-fulfillment/internal/shared/apperr"
)

// FarmersMarketClient talks to the external farmers market HTTP API. The
// market sells a random quantity per call, possibly zero.
type FarmersMarketClient struct {
	baseURL string
	client  *http.Client
}

func NewFarmersMarketClient(baseURL string) *FarmersMarketClient {
	return &FarmersMarketClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Buy asks the market for one ingredient by name and returns how many
// units it sold.
func (c *FarmersMarketClient) Buy(ctx context.Context, ingredientName string) (int, error) {
	u := c.baseURL + "?ingredient=" + url.QueryEscape(ingredientName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeExternal, "building market request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeExternal, "calling farmers market", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apperr.New(apperr.CodeExternal,
			fmt.Sprintf("farmers market returned status %d", resp.StatusCode))
	}

	var payload struct {
		QuantitySold int `json:"quantitySold"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, apperr.Wrap(apperr.CodeExternal, "decoding market reply", err)
	}
	if payload.QuantitySold < 0 {
		return 0, nil
	}
	return payload.QuantitySold, nil
}
