package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/strategy"
)

// WouldTrade records a trade that would have been placed in live mode.
type WouldTrade struct {
	Ts         time.Time   `json:"ts"`
	Ticker     string      `json:"ticker"`
	Side       market.Side `json:"side"`
	Action     string      `json:"action"`
	PriceCents int         `json:"price_cents"`
	Count      int         `json:"count"`
	Reason     string      `json:"reason"`
	PMarket    float64     `json:"p_market"`
	PModel     float64     `json:"p_model"`
	Edge       float64     `json:"edge"`
}

// TrainingExecutor accepts decisions against real market data and only ever
// records them. It holds no order client and exposes no submit method, so a
// training run cannot reach the exchange no matter how it is configured.
type TrainingExecutor struct {
	mu     sync.Mutex
	log    zerolog.Logger
	trades []WouldTrade
}

// NewTrainingExecutor builds the recorder.
func NewTrainingExecutor(log zerolog.Logger) *TrainingExecutor {
	log.Info().Msg("training executor initialized: no real trades will be placed")
	return &TrainingExecutor{log: log}
}

// Record stores a would-trade entry. This method only logs; nothing is executed.
func (t *TrainingExecutor) Record(now time.Time, d strategy.Decision) WouldTrade {
	record := WouldTrade{
		Ts:         now,
		Ticker:     d.Ticker,
		Side:       d.Side,
		Action:     d.Action,
		PriceCents: d.PriceCents,
		Count:      d.Count,
		Reason:     d.Reason,
		PMarket:    d.PMarket,
		PModel:     d.PModel,
		Edge:       d.Edge,
	}
	t.mu.Lock()
	t.trades = append(t.trades, record)
	t.mu.Unlock()

	costUSD := float64(d.PriceCents) / 100.0 * float64(d.Count)
	t.log.Info().Str("ticker", d.Ticker).Str("side", string(d.Side)).
		Int("price_cents", d.PriceCents).Int("count", d.Count).
		Float64("cost_usd", costUSD).Float64("edge", d.Edge).Msg("would trade")
	return record
}

// WouldTrades returns a copy of everything recorded so far.
func (t *TrainingExecutor) WouldTrades() []WouldTrade {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]WouldTrade, len(t.trades))
	copy(out, t.trades)
	return out
}

// Summary aggregates the session for the end-of-run report.
func (t *TrainingExecutor) Summary() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.trades) == 0 {
		return map[string]any{
			"total_would_trades":          0,
			"total_hypothetical_cost_usd": 0.0,
			"unique_tickers":              0,
			"avg_edge":                    0.0,
		}
	}

	totalCost := 0.0
	totalEdge := 0.0
	tickers := make(map[string]struct{})
	bySide := map[string]int{"yes": 0, "no": 0}
	for _, wt := range t.trades {
		totalCost += float64(wt.PriceCents) / 100.0 * float64(wt.Count)
		totalEdge += wt.Edge
		tickers[wt.Ticker] = struct{}{}
		bySide[string(wt.Side)]++
	}
	return map[string]any{
		"total_would_trades":          len(t.trades),
		"total_hypothetical_cost_usd": totalCost,
		"unique_tickers":              len(tickers),
		"avg_edge":                    totalEdge / float64(len(t.trades)),
		"by_side":                     bySide,
	}
}

// Reset clears all recorded would-trades.
func (t *TrainingExecutor) Reset() {
	t.mu.Lock()
	t.trades = nil
	t.mu.Unlock()
}

// Execute adapts Record to the dispatch contract. The record is never marked
// executed.
func (t *TrainingExecutor) Execute(ctx context.Context, now time.Time, d strategy.Decision, book orderbook.Book) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wt := t.Record(now, d)
	return &Record{
		Ts:         wt.Ts,
		Ticker:     wt.Ticker,
		Side:       wt.Side,
		Action:     wt.Action,
		PriceCents: wt.PriceCents,
		Count:      wt.Count,
		FeeCents:   0,
		Mode:       config.ModeTraining,
		Executed:   false,
	}, nil
}

// Mode names the executor for logs and reports.
func (t *TrainingExecutor) Mode() string { return config.ModeTraining }
