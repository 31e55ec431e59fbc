package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/exchange"
	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/strategy"
)

// OrderPlacer is the slice of the exchange client the live executor needs.
type OrderPlacer interface {
	CreateLimitBuy(ctx context.Context, req exchange.OrderRequest) (exchange.OrderConfirmation, error)
}

// LiveResult is a confirmed live submission. Fee is unknown until fill
// confirmation and reported as zero here.
type LiveResult struct {
	Ts              time.Time   `json:"ts"`
	Ticker          string      `json:"ticker"`
	Side            market.Side `json:"side"`
	Action          string      `json:"action"`
	PriceCents      int         `json:"price_cents"`
	Count           int         `json:"count"`
	FeeCents        int         `json:"fee_cents"`
	ExternalOrderID string      `json:"external_order_id"`
}

// LiveExecutor submits limit buys to the exchange. Used for both demo and
// prod; only the API root behind the client differs.
type LiveExecutor struct {
	mode   string
	orders OrderPlacer
	log    zerolog.Logger
}

// NewLiveExecutor wraps an order client for the given mode label.
func NewLiveExecutor(mode string, orders OrderPlacer, log zerolog.Logger) *LiveExecutor {
	return &LiveExecutor{mode: mode, orders: orders, log: log}
}

// SubmitLimitBuy places one order with a fresh idempotency token.
func (l *LiveExecutor) SubmitLimitBuy(ctx context.Context, now time.Time, ticker string, side market.Side, count, priceCents int) (LiveResult, error) {
	clientOrderID := uuid.NewString()
	conf, err := l.orders.CreateLimitBuy(ctx, exchange.OrderRequest{
		Ticker:        ticker,
		Side:          side,
		Count:         count,
		PriceCents:    priceCents,
		ClientOrderID: clientOrderID,
	})
	if err != nil {
		return LiveResult{}, fmt.Errorf("submit limit buy %s: %w", ticker, err)
	}
	return LiveResult{
		Ts:              now,
		Ticker:          ticker,
		Side:            side,
		Action:          "buy",
		PriceCents:      priceCents,
		Count:           count,
		FeeCents:        0,
		ExternalOrderID: conf.OrderID,
	}, nil
}

// Execute adapts SubmitLimitBuy to the dispatch contract.
func (l *LiveExecutor) Execute(ctx context.Context, now time.Time, d strategy.Decision, book orderbook.Book) (*Record, error) {
	l.log.Warn().Str("ticker", d.Ticker).Str("side", string(d.Side)).
		Int("count", d.Count).Int("price_cents", d.PriceCents).Msg("submitting live order")
	res, err := l.SubmitLimitBuy(ctx, now, d.Ticker, d.Side, d.Count, d.PriceCents)
	if err != nil {
		return nil, err
	}
	return &Record{
		Ts:              res.Ts,
		Ticker:          res.Ticker,
		Side:            res.Side,
		Action:          res.Action,
		PriceCents:      res.PriceCents,
		Count:           res.Count,
		FeeCents:        res.FeeCents,
		Mode:            l.mode,
		ExternalOrderID: res.ExternalOrderID,
		Executed:        true,
	}, nil
}

// Mode names the executor for logs and reports.
func (l *LiveExecutor) Mode() string { return l.mode }
