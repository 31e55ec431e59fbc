package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/market"
)

func TestClientMarketsAndOrderbook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets":
			fmt.Fprint(w, `{"markets":[{"ticker":"ELEC-24","title":"Will the candidate win","status":"open","close_time":"2026-11-03T00:00:00Z"}]}`)
		case "/markets/ELEC-24/orderbook":
			fmt.Fprint(w, `{"orderbook":{"yes":[[10,1],[20,1]],"no":[[70,1]]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	markets, err := client.Markets(context.Background(), 10)
	if err != nil {
		t.Fatalf("Markets returned error: %v", err)
	}
	if len(markets) != 1 || markets[0].Ticker != "ELEC-24" {
		t.Fatalf("unexpected markets: %+v", markets)
	}

	book, err := client.Orderbook(context.Background(), "ELEC-24")
	if err != nil {
		t.Fatalf("Orderbook returned error: %v", err)
	}
	if len(book.YesBids) != 2 || book.YesBids[1].PriceCents != 20 {
		t.Fatalf("unexpected yes ladder: %+v", book.YesBids)
	}
	if len(book.NoBids) != 1 || book.NoBids[0].Count != 1 {
		t.Fatalf("unexpected no ladder: %+v", book.NoBids)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"markets":[]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	if _, err := client.Markets(context.Background(), 5); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	if _, err := client.Markets(context.Background(), 5); err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", calls.Load())
	}
}

func TestCreateLimitBuyMapsSideToPriceField(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/portfolio/orders" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"order":{"order_id":"ord-123"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	conf, err := client.CreateLimitBuy(context.Background(), OrderRequest{
		Ticker:        "ELEC-24",
		Side:          market.Yes,
		Count:         5,
		PriceCents:    48,
		ClientOrderID: "token-1",
	})
	if err != nil {
		t.Fatalf("CreateLimitBuy returned error: %v", err)
	}
	if conf.OrderID != "ord-123" {
		t.Fatalf("unexpected order id: %s", conf.OrderID)
	}
	if got["yes_price"] != float64(48) {
		t.Fatalf("expected yes_price 48, got %v", got["yes_price"])
	}
	if _, ok := got["no_price"]; ok {
		t.Fatalf("no_price must be omitted for yes orders")
	}
	if got["client_order_id"] != "token-1" {
		t.Fatalf("missing idempotency token: %v", got)
	}

	if _, err := client.CreateLimitBuy(context.Background(), OrderRequest{Ticker: "X", Side: "maybe"}); err == nil {
		t.Fatalf("expected error for invalid side")
	}
}

func TestStubServesDeterministicMarkets(t *testing.T) {
	stub := NewStub(3)
	markets, err := stub.Markets(context.Background(), 2)
	if err != nil {
		t.Fatalf("Markets returned error: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(markets))
	}

	book, err := stub.Orderbook(context.Background(), markets[0].Ticker)
	if err != nil {
		t.Fatalf("Orderbook returned error: %v", err)
	}
	if book.Empty() {
		t.Fatalf("stub book should be two-sided")
	}
	best := book.YesBids[len(book.YesBids)-1].PriceCents
	noBest := book.NoBids[len(book.NoBids)-1].PriceCents
	if best+noBest != 96 {
		t.Fatalf("stub should keep a 4-cent spread, got yes=%d no=%d", best, noBest)
	}
}
