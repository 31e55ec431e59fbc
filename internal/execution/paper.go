package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/strategy"
)

// Fill is a simulated execution produced by the paper executor.
type Fill struct {
	Ts         time.Time   `json:"ts"`
	Ticker     string      `json:"ticker"`
	Side       market.Side `json:"side"`
	Action     string      `json:"action"`
	PriceCents int         `json:"price_cents"`
	Count      int         `json:"count"`
	FeeCents   int         `json:"fee_cents"`
}

// PaperExecutor is a deliberately pessimistic fill simulator: maker orders
// rest and never fill immediately; taker orders fill instantly at the implied
// ask when the submitted price meets or crosses it.
type PaperExecutor struct {
	makerOnly     bool
	takerFeeCents int
	log           zerolog.Logger
}

// NewPaperExecutor builds the simulator with the run's fee and maker settings.
func NewPaperExecutor(makerOnly bool, takerFeeCents int, log zerolog.Logger) *PaperExecutor {
	return &PaperExecutor{makerOnly: makerOnly, takerFeeCents: takerFeeCents, log: log}
}

// TryFill simulates one order against the current book. Returns nil when the
// order does not fill. Non-buy actions are unsupported and never fill.
func (p *PaperExecutor) TryFill(now time.Time, ticker string, side market.Side, action string, priceCents, count int, book orderbook.Book) *Fill {
	if action != "buy" {
		return nil
	}

	bp := orderbook.Best(book)
	var impliedAsk, bestBid *int
	if side == market.Yes {
		impliedAsk = bp.BestYesAsk
		bestBid = bp.BestYesBid
	} else {
		impliedAsk = bp.BestNoAsk
		bestBid = bp.BestNoBid
	}
	if impliedAsk == nil || bestBid == nil {
		return nil
	}

	if p.makerOnly {
		// Maker orders rest; nothing fills inside the same cycle.
		return nil
	}

	if priceCents >= *impliedAsk {
		return &Fill{
			Ts:         now,
			Ticker:     ticker,
			Side:       side,
			Action:     action,
			PriceCents: *impliedAsk,
			Count:      count,
			FeeCents:   p.takerFeeCents * count,
		}
	}
	return nil
}

// Execute adapts TryFill to the dispatch contract.
func (p *PaperExecutor) Execute(ctx context.Context, now time.Time, d strategy.Decision, book orderbook.Book) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fill := p.TryFill(now, d.Ticker, d.Side, d.Action, d.PriceCents, d.Count, book)
	if fill == nil {
		return nil, nil
	}
	p.log.Info().Str("ticker", fill.Ticker).Str("side", string(fill.Side)).
		Int("price_cents", fill.PriceCents).Int("count", fill.Count).Msg("paper fill")
	return &Record{
		Ts:         fill.Ts,
		Ticker:     fill.Ticker,
		Side:       fill.Side,
		Action:     fill.Action,
		PriceCents: fill.PriceCents,
		Count:      fill.Count,
		FeeCents:   fill.FeeCents,
		Mode:       config.ModePaper,
		Executed:   true,
	}, nil
}

// Mode names the executor for logs and reports.
func (p *PaperExecutor) Mode() string { return config.ModePaper }
