package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
)

// Stub is a deterministic offline Source for paper/training runs and tests.
// Books drift one cent per Orderbook call so successive cycles see movement.
type Stub struct {
	mu      sync.Mutex
	count   int
	ticks   map[string]int
	fixed   map[string]orderbook.Book
	markets []market.Market
}

// NewStub builds a stub serving count synthetic markets.
func NewStub(count int) *Stub {
	if count <= 0 {
		count = 4
	}
	s := &Stub{count: count, ticks: make(map[string]int), fixed: make(map[string]orderbook.Book)}
	for i := 0; i < count; i++ {
		s.markets = append(s.markets, market.Market{
			Ticker: fmt.Sprintf("STUB-%02d", i),
			Title:  fmt.Sprintf("Will synthetic event %d resolve yes", i),
			Status: "open",
		})
	}
	return s
}

// SetBook pins a fixed book for a ticker, overriding the synthetic one.
func (s *Stub) SetBook(ticker string, book orderbook.Book) {
	s.mu.Lock()
	s.fixed[ticker] = book
	s.mu.Unlock()
}

// Markets returns the synthetic listing, truncated to limit.
func (s *Stub) Markets(ctx context.Context, limit int) ([]market.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.markets
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	cp := make([]market.Market, len(out))
	copy(cp, out)
	return cp, nil
}

// Orderbook serves the pinned book if present, otherwise a drifting synthetic
// two-sided book centered near 50 cents.
func (s *Stub) Orderbook(ctx context.Context, ticker string) (orderbook.Book, error) {
	if err := ctx.Err(); err != nil {
		return orderbook.Book{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if book, ok := s.fixed[ticker]; ok {
		return book, nil
	}
	tick := s.ticks[ticker]
	s.ticks[ticker] = tick + 1

	yesBid := 45 + tick%8
	noBid := 100 - yesBid - 4 // keeps a steady 4-cent spread
	return orderbook.Book{
		YesBids: []orderbook.Level{
			{PriceCents: yesBid - 3, Count: 40},
			{PriceCents: yesBid, Count: 60},
		},
		NoBids: []orderbook.Level{
			{PriceCents: noBid - 3, Count: 40},
			{PriceCents: noBid, Count: 60},
		},
	}, nil
}
