// Package integration exercises the full decide/execute/report flow offline.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/exchange"
	"github.com/lehacf-git/castle-bot/internal/execution"
	"github.com/lehacf-git/castle-bot/internal/news"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/report"
	"github.com/lehacf-git/castle-bot/internal/runner"
)

type staticHeadlines []news.Headline

func (s staticHeadlines) Recent(ctx context.Context, now time.Time, lookback time.Duration) ([]news.Headline, error) {
	return s, nil
}

// One run against the offline stub in paper mode with the taker test enabled:
// the engine should decide, cross the implied ask, fill, and leave artifacts.
func TestPaperFlowEndToEnd(t *testing.T) {
	cfg := &config.Config{
		App:      config.App{Name: "castle-bot", LogLevel: "disabled"},
		Exchange: config.Exchange{LimitMarkets: 5, UseStub: true, StubMarkets: 1},
		Strategy: config.Strategy{
			MinEdgeProb:       0.02,
			MaxSpreadCents:    10,
			MinDepthContracts: 10,
			MakerOnly:         true,
			TakerFeeCents:     2,
			CooldownSeconds:   60,
			EnableTakerTest:   true,
		},
		Risk: config.Risk{BankrollUSD: 500, MaxRiskPerMarketUSD: 50, MaxTotalExposureUSD: 200},
		News: config.News{LookbackHours: 24},
		Run:  config.Run{Mode: config.ModePaper, Minutes: 1, CycleSeconds: 1},
	}

	stub := exchange.NewStub(cfg.Exchange.StubMarkets)
	stub.SetBook("STUB-00", orderbook.Book{
		YesBids: []orderbook.Level{{PriceCents: 44, Count: 60}, {PriceCents: 48, Count: 60}},
		NoBids:  []orderbook.Level{{PriceCents: 44, Count: 60}, {PriceCents: 48, Count: 60}},
	})

	// Taker test overrides maker-only for the simulated fill model too.
	makerOnly := cfg.Strategy.MakerOnly && !cfg.Strategy.EnableTakerTest
	exec, err := execution.ForMode(config.ModePaper, execution.Deps{
		Log:           zerolog.Nop(),
		MakerOnly:     makerOnly,
		TakerFeeCents: cfg.Strategy.TakerFeeCents,
	})
	if err != nil {
		t.Fatalf("ForMode error: %v", err)
	}

	writer, err := report.NewRunWriter(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatalf("NewRunWriter error: %v", err)
	}

	now := time.Now().UTC()
	r, err := runner.New(runner.Options{
		Cfg:      cfg,
		Mode:     config.ModePaper,
		Source:   stub,
		Executor: exec,
		Headlines: staticHeadlines{
			{Ts: now.Add(-5 * time.Minute), Title: "Synthetic event resolves yes, record surge and strong win ahead"},
		},
		Writer:   writer,
		Log:      zerolog.Nop(),
		Duration: 0,
		Cycle:    time.Second,
	})
	if err != nil {
		t.Fatalf("runner.New error: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if got := r.Ledger().TotalContracts(); got <= 0 {
		t.Fatalf("expected a filled position, got %d contracts", got)
	}

	data, err := os.ReadFile(filepath.Join(writer.Dir(), "summary.json"))
	if err != nil {
		t.Fatalf("read summary.json: %v", err)
	}
	var summary map[string]any
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary.json: %v", err)
	}
	if summary["mode"] != config.ModePaper {
		t.Fatalf("unexpected mode in summary: %v", summary["mode"])
	}
	if summary["decisions_generated"].(float64) < 1 {
		t.Fatalf("expected at least one decision: %v", summary)
	}
	if summary["trades_filled_paper"].(float64) < 1 {
		t.Fatalf("expected at least one paper fill: %v", summary)
	}
}
