package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "castle-bot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9100" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Exchange.DemoRoot != "https://demo-api.kalshi.co/trade-api/v2" {
		t.Fatalf("unexpected demo root: %s", cfg.Exchange.DemoRoot)
	}
	if cfg.Exchange.LimitMarkets != 40 {
		t.Fatalf("unexpected limit markets: %d", cfg.Exchange.LimitMarkets)
	}
	if !cfg.Exchange.UseStub || cfg.Exchange.StubMarkets != 8 {
		t.Fatalf("unexpected stub settings: %+v", cfg.Exchange)
	}
	if cfg.Strategy.MinEdgeProb != 0.02 {
		t.Fatalf("unexpected min edge prob: %.4f", cfg.Strategy.MinEdgeProb)
	}
	if cfg.Strategy.MaxSpreadCents != 10 {
		t.Fatalf("unexpected max spread: %d", cfg.Strategy.MaxSpreadCents)
	}
	if cfg.Strategy.MinDepthContracts != 25 {
		t.Fatalf("unexpected min depth: %d", cfg.Strategy.MinDepthContracts)
	}
	if !cfg.Strategy.MakerOnly {
		t.Fatalf("expected maker_only true")
	}
	if cfg.Strategy.TakerFeeCents != 2 {
		t.Fatalf("unexpected taker fee: %d", cfg.Strategy.TakerFeeCents)
	}
	if cfg.Strategy.CooldownSeconds != 60 {
		t.Fatalf("unexpected cooldown: %d", cfg.Strategy.CooldownSeconds)
	}
	if cfg.Risk.BankrollUSD != 1000 {
		t.Fatalf("unexpected bankroll: %.2f", cfg.Risk.BankrollUSD)
	}
	if cfg.Risk.MaxRiskPerMarketUSD != 50 {
		t.Fatalf("unexpected per-market risk: %.2f", cfg.Risk.MaxRiskPerMarketUSD)
	}
	if cfg.Risk.MaxTotalExposureUSD != 200 {
		t.Fatalf("unexpected max exposure: %.2f", cfg.Risk.MaxTotalExposureUSD)
	}
	if len(cfg.News.Feeds) != 1 || cfg.News.Feeds[0] != "https://example.com/rss" {
		t.Fatalf("unexpected news feeds: %+v", cfg.News.Feeds)
	}
	if cfg.News.LookbackHours != 24 {
		t.Fatalf("unexpected news lookback: %d", cfg.News.LookbackHours)
	}
	if cfg.Run.Mode != "paper" || cfg.Run.Minutes != 15 || cfg.Run.CycleSeconds != 5 {
		t.Fatalf("unexpected run settings: %+v", cfg.Run)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{"paper", "training", "demo", "prod", " Paper "} {
		if !ValidMode(mode) {
			t.Fatalf("expected %q to be valid", mode)
		}
	}
	for _, mode := range []string{"", "live", "test"} {
		if ValidMode(mode) {
			t.Fatalf("expected %q to be invalid", mode)
		}
	}
}

func TestAPIRootPerMode(t *testing.T) {
	e := Exchange{DemoRoot: "https://demo", ProdRoot: "https://prod"}
	if e.APIRoot("demo") != "https://demo" {
		t.Fatalf("demo mode should use demo root")
	}
	if e.APIRoot("prod") != "https://prod" {
		t.Fatalf("prod mode should use prod root")
	}
	// Training consumes production data but never trades.
	if e.APIRoot("training") != "https://prod" {
		t.Fatalf("training mode should use prod root for data")
	}
}
