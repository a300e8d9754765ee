// Package shop is the client for the DeliverIt commerce API: product
// search and cart mutation. Both operations are treated as opaque remote
// collaborators and protected by a shared circuit breaker.
package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deliverit/voice-assistant/internal/config"
	"github.com/deliverit/voice-assistant/internal/observability"
	"github.com/deliverit/voice-assistant/internal/resilience"
)

const (
	searchPath = "/api/admin/get_all_product/search"
	cartPath   = "/api/user/add_to_cart"
)

// Client talks to the commerce API.
type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewClient creates a commerce client with circuit breaker protection
func NewClient(cfg *config.Config) *Client {
	breaker := resilience.NewCircuitBreaker(
		"shop",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	breaker.OnStateChange(func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
	})

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.ShopBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: breaker,
	}
}

// SearchProducts searches the catalog. The API matches on a single name
// token, so only the first word of the query is sent.
func (c *Client) SearchProducts(ctx context.Context, query string) (*ProductList, error) {
	payload := map[string]string{
		"name": firstWord(query),
	}

	headers := map[string]string{
		"token":         c.cfg.ShopAdminToken,
		"ware_house_id": c.cfg.ShopWarehouseID,
	}

	var list ProductList
	err := c.breaker.Call(func() error {
		return c.post(ctx, searchPath, payload, headers, &list)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return &list, nil
}

// AddToCart adds a product to the customer's cart. Empty lat/long fall
// back to the configured defaults.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int, lat, long string) (*CartResult, error) {
	if lat == "" {
		lat = c.cfg.DefaultLatitude
	}
	if long == "" {
		long = c.cfg.DefaultLongitude
	}

	payload := map[string]interface{}{
		"productId":           productID,
		"quantity":            quantity,
		"order_delivery_type": 1,
		"lat":                 lat,
		"long":                long,
	}

	headers := map[string]string{
		"token":          c.cfg.ShopCustomerToken,
		"customerOrgId":  c.cfg.CartCustomerOrgID,
		"customerTypeId": "1",
		"outletId":       c.cfg.CartOutletID,
		"ware_house_id":  c.cfg.CartWarehouseID,
	}

	var result CartResult
	err := c.breaker.Call(func() error {
		return c.post(ctx, cartPath, payload, headers, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	return &result, nil
}

// Ping checks API reachability for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, headers map[string]string, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("commerce API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// firstWord returns the first whitespace-separated token of s.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
