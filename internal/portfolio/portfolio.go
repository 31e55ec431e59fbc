// Package portfolio tracks per-(ticker,side) positions, exposure, and mark-to-market value.
package portfolio

import (
	"sync"

	"github.com/lehacf-git/castle-bot/internal/market"
)

// Key identifies one position bucket.
type Key struct {
	Ticker string
	Side   market.Side
}

// Position is the quantity held and its volume-weighted average price.
type Position struct {
	Qty           int
	AvgPriceCents float64
}

// ApplyBuy folds a buy fill into a position, recomputing the weighted average
// price. The max(1, qty) denominator guards the empty-position case.
func ApplyBuy(pos Position, priceCents, count int) Position {
	if count <= 0 {
		return pos
	}
	newQty := pos.Qty + count
	denom := newQty
	if denom < 1 {
		denom = 1
	}
	newAvg := (pos.AvgPriceCents*float64(pos.Qty) + float64(priceCents)*float64(count)) / float64(denom)
	return Position{Qty: newQty, AvgPriceCents: newAvg}
}

// Ledger owns the position map for the duration of a run.
type Ledger struct {
	mu        sync.Mutex
	positions map[Key]Position
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{positions: make(map[Key]Position)}
}

// ApplyBuy records a buy fill against the keyed position.
func (l *Ledger) ApplyBuy(key Key, priceCents, count int) Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos := ApplyBuy(l.positions[key], priceCents, count)
	l.positions[key] = pos
	return pos
}

// Position returns the current state for a key.
func (l *Ledger) Position(key Key) Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions[key]
}

// Snapshot copies the full position map.
func (l *Ledger) Snapshot() map[Key]Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Key]Position, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// TotalContracts sums held quantities across all positions.
func (l *Ledger) TotalContracts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, p := range l.positions {
		total += p.Qty
	}
	return total
}

// ExposureUSD is the cost-basis value of all positions, used for risk budgeting.
func (l *Ledger) ExposureUSD() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	cents := 0.0
	for _, p := range l.positions {
		cents += float64(p.Qty) * p.AvgPriceCents
	}
	return cents / 100.0
}

// MarkToMarketUSD values yes positions at 100*p and no positions at 100*(1-p)
// cents using the supplied per-ticker mid yes probabilities. Tickers without a
// current mid are skipped.
func (l *Ledger) MarkToMarketUSD(midsYes map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	cents := 0.0
	for key, p := range l.positions {
		py, ok := midsYes[key.Ticker]
		if !ok {
			continue
		}
		valueCents := 100.0 * py
		if key.Side == market.No {
			valueCents = 100.0 * (1.0 - py)
		}
		cents += float64(p.Qty) * valueCents
	}
	return cents / 100.0
}
