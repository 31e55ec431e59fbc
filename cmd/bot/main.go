package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/exchange"
	"github.com/lehacf-git/castle-bot/internal/execution"
	"github.com/lehacf-git/castle-bot/internal/metrics"
	"github.com/lehacf-git/castle-bot/internal/news"
	"github.com/lehacf-git/castle-bot/internal/report"
	"github.com/lehacf-git/castle-bot/internal/runner"
	"github.com/lehacf-git/castle-bot/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config")
	mode := flag.String("mode", "", "run mode: paper, training, demo, prod (overrides config)")
	minutes := flag.Int("minutes", 0, "run duration in minutes (overrides config)")
	limit := flag.Int("limit", 0, "max markets per cycle (overrides config)")
	flag.Parse()

	// Secrets come from the environment; .env is a local convenience.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	runMode := cfg.Run.Mode
	if *mode != "" {
		runMode = *mode
	}
	runMode = strings.ToLower(strings.TrimSpace(runMode))
	if !config.ValidMode(runMode) {
		log.Fatal().Str("mode", runMode).Msg("unknown mode, want paper|training|demo|prod")
	}
	if *minutes > 0 {
		cfg.Run.Minutes = *minutes
	}
	if *limit > 0 {
		cfg.Exchange.LimitMarkets = *limit
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, orders := buildSource(ctx, cfg, runMode, log)

	makerOnly := cfg.Strategy.MakerOnly && !cfg.Strategy.EnableTakerTest
	exec, err := execution.ForMode(runMode, execution.Deps{
		Log:           log,
		MakerOnly:     makerOnly,
		TakerFeeCents: cfg.Strategy.TakerFeeCents,
		Orders:        orders,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build executor")
	}

	var headlines runner.HeadlineSource
	if len(cfg.News.Feeds) > 0 {
		headlines = news.NewCollector(cfg.News.Feeds, log)
	}

	runsDir := cfg.App.RunsDir
	if runsDir == "" {
		runsDir = "runs"
	}
	runDir := filepath.Join(runsDir, fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), runMode))
	writer, err := report.NewRunWriter(runDir)
	if err != nil {
		log.Fatal().Err(err).Msg("create run dir")
	}

	duration := time.Duration(cfg.Run.Minutes) * time.Minute
	if duration <= 0 {
		duration = 10 * time.Minute
	}
	cycle := time.Duration(cfg.Run.CycleSeconds) * time.Second
	if cycle <= 0 {
		cycle = 15 * time.Second
	}

	r, err := runner.New(runner.Options{
		Cfg:       cfg,
		Mode:      runMode,
		Source:    source,
		Executor:  exec,
		Headlines: headlines,
		Writer:    writer,
		Log:       log,
		Duration:  duration,
		Cycle:     cycle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build runner")
	}

	log.Info().Str("mode", runMode).Str("run_dir", runDir).Msg("engine started")
	if err := r.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

// buildSource picks the market data source for the mode: the offline stub, a
// plain REST client, or REST fronted by a websocket orderbook cache.
func buildSource(ctx context.Context, cfg *config.Config, runMode string, log zerolog.Logger) (exchange.Source, execution.OrderPlacer) {
	if cfg.Exchange.UseStub {
		log.Info().Int("markets", cfg.Exchange.StubMarkets).Msg("using offline stub source")
		return exchange.NewStub(cfg.Exchange.StubMarkets), nil
	}

	root := cfg.Exchange.APIRoot(runMode)
	var opts []exchange.Option
	if cfg.Exchange.KeyIDEnv != "" {
		if keyID := os.Getenv(cfg.Exchange.KeyIDEnv); keyID != "" {
			opts = append(opts, exchange.WithHeaderFunc(func(method, path string) http.Header {
				h := make(http.Header)
				h.Set("KALSHI-ACCESS-KEY", keyID)
				return h
			}))
		} else if runMode == config.ModeDemo || runMode == config.ModeProd {
			log.Fatal().Str("env", cfg.Exchange.KeyIDEnv).Msg("live mode needs an API key in the environment")
		}
	}
	client := exchange.NewClient(root, log, opts...)

	if cfg.Exchange.WSRoot == "" {
		return client, client
	}

	stream := exchange.NewStream(cfg.Exchange.WSRoot, nil, client, log)
	go func() {
		if err := stream.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("stream stopped, falling back to REST polling")
		}
	}()
	return stream, client
}
