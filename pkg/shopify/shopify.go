// Package shopify fetches recent orders from the Shopify Admin GraphQL API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/shopsage/pkg/llm"
	"github.com/xhad/shopsage/pkg/processor"
)

const (
	DefaultAPIVersion = "2025-01"
	DefaultLimit      = 20
	MaxLimit          = 100

	providerShopify = "shopify"
)

const recentOrdersQuery = `query RecentOrders($first: Int!) {
  orders(first: $first, reverse: true) {
    edges {
      node {
        id
        name
        createdAt
        totalPriceSet { shopMoney { amount currencyCode } }
        email
        tags
        shippingAddress { city country }
        discountCodes
        lineItems(first: 50) {
          edges {
            node {
              title
              quantity
              vendor
              originalUnitPriceSet { shopMoney { amount currencyCode } }
            }
          }
        }
      }
    }
  }
}`

type ClientConfig struct {
	APIVersion string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	// Endpoint, when set, replaces https://<shop>/admin/api/<version>/graphql.json.
	Endpoint string
}

type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ClientConfig) *Client {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Client {
	return NewWithConfig(ClientConfig{})
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type ordersResponse struct {
	Data struct {
		Orders struct {
			Edges []struct {
				Node processor.PlatformOrder `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// RecentOrders returns up to limit of the shop's newest orders. A limit
// outside 1..MaxLimit falls back to DefaultLimit.
func (c *Client) RecentOrders(ctx context.Context, shop, accessToken string, limit int) ([]processor.RawOrder, error) {
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{
		Query:     recentOrdersQuery,
		Variables: map[string]any{"first": limit},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &llm.UpstreamError{Provider: providerShopify, Op: "orders", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, llm.NewStatusError(providerShopify, "orders", resp)
	}

	var out ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &llm.UpstreamError{Provider: providerShopify, Op: "orders", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("shopify graphql errors: %s", strings.Join(msgs, "; "))
	}

	orders := make([]processor.RawOrder, len(out.Data.Orders.Edges))
	for i, edge := range out.Data.Orders.Edges {
		orders[i] = edge.Node
	}
	return orders, nil
}

func (c *Client) endpoint(shop string) string {
	if c.config.Endpoint != "" {
		return c.config.Endpoint
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.config.APIVersion)
}
