// Package execution turns trade decisions into fills, would-trade records, or live orders.
package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/strategy"
)

// Record is the common trade row every executor produces, consumed by the
// reporting layer. Executed is false only for training would-trades and
// unfilled paper orders never produce a record at all.
type Record struct {
	Ts              time.Time   `json:"ts"`
	Ticker          string      `json:"ticker"`
	Side            market.Side `json:"side"`
	Action          string      `json:"action"`
	PriceCents      int         `json:"price_cents"`
	Count           int         `json:"count"`
	FeeCents        int         `json:"fee_cents"`
	Mode            string      `json:"mode"`
	ExternalOrderID string      `json:"external_order_id"`
	Executed        bool        `json:"executed"`
}

// Executor is the single dispatch contract selected once per run, never
// re-branched per decision. A nil record with a nil error means the decision
// produced no trade this cycle (resting maker order, unfilled taker).
type Executor interface {
	Execute(ctx context.Context, now time.Time, d strategy.Decision, book orderbook.Book) (*Record, error)
	Mode() string
}

// Deps carries the collaborators executors may need. Only the live executor
// touches the order client; the training executor cannot, by construction.
type Deps struct {
	Log           zerolog.Logger
	MakerOnly     bool
	TakerFeeCents int
	Orders        OrderPlacer
}

// ForMode builds the executor for a validated mode string. An unknown mode is
// a configuration bug and returns an error the caller must treat as fatal.
func ForMode(mode string, deps Deps) (Executor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.ModePaper:
		return NewPaperExecutor(deps.MakerOnly, deps.TakerFeeCents, deps.Log), nil
	case config.ModeTraining:
		return NewTrainingExecutor(deps.Log), nil
	case config.ModeDemo, config.ModeProd:
		if deps.Orders == nil {
			return nil, fmt.Errorf("mode %q requires an order client", mode)
		}
		return NewLiveExecutor(strings.ToLower(strings.TrimSpace(mode)), deps.Orders, deps.Log), nil
	default:
		return nil, fmt.Errorf("invalid mode %q: must be paper|training|demo|prod", mode)
	}
}
