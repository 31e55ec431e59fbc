package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
)

// Stream keeps a local orderbook cache fed by the venue's websocket snapshot
// channel. It wraps a REST Source: market listings and cache misses fall back
// to REST, so the run loop sees one Source either way.
type Stream struct {
	url     string
	tickers []string
	rest    Source
	log     zerolog.Logger

	mu    sync.RWMutex
	books map[string]orderbook.Book
}

// NewStream builds a stream over the given websocket URL for a set of tickers.
func NewStream(url string, tickers []string, rest Source, log zerolog.Logger) *Stream {
	return &Stream{
		url:     url,
		tickers: tickers,
		rest:    rest,
		log:     log,
		books:   make(map[string]orderbook.Book),
	}
}

// Markets delegates to the REST source.
func (s *Stream) Markets(ctx context.Context, limit int) ([]market.Market, error) {
	return s.rest.Markets(ctx, limit)
}

// Orderbook serves the cached book when the stream has one, falling back to REST.
func (s *Stream) Orderbook(ctx context.Context, ticker string) (orderbook.Book, error) {
	s.mu.RLock()
	book, ok := s.books[ticker]
	s.mu.RUnlock()
	if ok {
		return book, nil
	}
	return s.rest.Orderbook(ctx, ticker)
}

type subscribeCommand struct {
	ID     int             `json:"id"`
	Cmd    string          `json:"cmd"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

type streamEnvelope struct {
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

type snapshotMessage struct {
	MarketTicker string  `json:"market_ticker"`
	Yes          [][]int `json:"yes"`
	No           [][]int `json:"no"`
}

// Run consumes the websocket until the context is canceled, reconnecting with
// exponential backoff on failure.
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("orderbook stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("url", s.url).Int("tickers", len(s.tickers)).Msg("connected orderbook stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	sub := subscribeCommand{
		ID:  1,
		Cmd: "subscribe",
		Params: subscribeParams{
			Channels:      []string{"orderbook_snapshot"},
			MarketTickers: s.tickers,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env streamEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		if env.Type != "orderbook_snapshot" {
			continue
		}
		var snap snapshotMessage
		if err := json.Unmarshal(env.Msg, &snap); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode orderbook snapshot")
			continue
		}
		if snap.MarketTicker == "" {
			continue
		}
		s.mu.Lock()
		s.books[snap.MarketTicker] = orderbook.Book{
			YesBids: toLevels(snap.Yes),
			NoBids:  toLevels(snap.No),
		}
		s.mu.Unlock()
	}
}
