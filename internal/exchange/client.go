// Package exchange hosts connectors for the prediction-market venue.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
)

// Source is the read-only market data surface the run loop consumes.
type Source interface {
	Markets(ctx context.Context, limit int) ([]market.Market, error)
	Orderbook(ctx context.Context, ticker string) (orderbook.Book, error)
}

// OrderRequest is a limit buy submission. ClientOrderID is the idempotency token.
type OrderRequest struct {
	Ticker        string
	Side          market.Side
	Count         int
	PriceCents    int
	ClientOrderID string
}

// OrderConfirmation carries the exchange-assigned order identifier.
type OrderConfirmation struct {
	OrderID string
}

// HeaderFunc injects request headers, typically for request signing. Signing
// itself belongs to the transport collaborator, not this package.
type HeaderFunc func(method, path string) http.Header

// Client talks to a Kalshi-style REST API.
type Client struct {
	root    string
	headers HeaderFunc
	http    *http.Client
	log     zerolog.Logger
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithHeaderFunc installs an auth/signing header provider.
func WithHeaderFunc(fn HeaderFunc) Option {
	return func(c *Client) { c.headers = fn }
}

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient builds a client for the given API root.
func NewClient(root string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		root: strings.TrimSuffix(root, "/"),
		http: &http.Client{Timeout: 20 * time.Second},
		log:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const maxAttempts = 4

// do issues a request with exponential backoff on transport and 5xx failures.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	backoff := 250 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(5*time.Second), float64(backoff)*2))
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.root+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.headers != nil {
			for k, vs := range c.headers(method, path) {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%s %s failed: %d %s", method, path, resp.StatusCode, data)
			continue
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s failed: %d %s", method, path, resp.StatusCode, data)
		}
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s %s: retries exhausted: %w", method, path, lastErr)
}

type marketsResponse struct {
	Markets []struct {
		Ticker    string `json:"ticker"`
		Title     string `json:"title"`
		Status    string `json:"status"`
		CloseTime string `json:"close_time"`
	} `json:"markets"`
}

// Markets lists open markets, at most limit of them.
func (c *Client) Markets(ctx context.Context, limit int) ([]market.Market, error) {
	var resp marketsResponse
	path := fmt.Sprintf("/markets?status=open&limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]market.Market, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		closeTime, _ := time.Parse(time.RFC3339, m.CloseTime)
		out = append(out, market.Market{
			Ticker:    m.Ticker,
			Title:     m.Title,
			Status:    m.Status,
			CloseTime: closeTime,
		})
	}
	return out, nil
}

type orderbookResponse struct {
	Orderbook struct {
		Yes [][]int `json:"yes"`
		No  [][]int `json:"no"`
	} `json:"orderbook"`
}

// Orderbook fetches both bid ladders for one market.
func (c *Client) Orderbook(ctx context.Context, ticker string) (orderbook.Book, error) {
	var resp orderbookResponse
	path := fmt.Sprintf("/markets/%s/orderbook", ticker)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return orderbook.Book{}, err
	}
	return orderbook.Book{
		YesBids: toLevels(resp.Orderbook.Yes),
		NoBids:  toLevels(resp.Orderbook.No),
	}, nil
}

func toLevels(pairs [][]int) []orderbook.Level {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]orderbook.Level, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		out = append(out, orderbook.Level{PriceCents: p[0], Count: p[1]})
	}
	return out
}

type createOrderRequest struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
	ClientOrderID string `json:"client_order_id"`
	YesPrice      *int   `json:"yes_price,omitempty"`
	NoPrice       *int   `json:"no_price,omitempty"`
}

type createOrderResponse struct {
	Order struct {
		OrderID string `json:"order_id"`
	} `json:"order"`
}

// CreateLimitBuy submits a limit buy. The price lands in yes_price or no_price
// depending on side, per the venue's order schema.
func (c *Client) CreateLimitBuy(ctx context.Context, req OrderRequest) (OrderConfirmation, error) {
	payload := createOrderRequest{
		Ticker:        req.Ticker,
		Action:        "buy",
		Side:          string(req.Side),
		Count:         req.Count,
		Type:          "limit",
		ClientOrderID: req.ClientOrderID,
	}
	switch req.Side {
	case market.Yes:
		payload.YesPrice = &req.PriceCents
	case market.No:
		payload.NoPrice = &req.PriceCents
	default:
		return OrderConfirmation{}, fmt.Errorf("side must be yes or no, got %q", req.Side)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return OrderConfirmation{}, fmt.Errorf("encode order: %w", err)
	}
	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/portfolio/orders", body, &resp); err != nil {
		return OrderConfirmation{}, err
	}
	return OrderConfirmation{OrderID: resp.Order.OrderID}, nil
}
