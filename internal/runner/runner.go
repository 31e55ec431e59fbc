// Package runner drives the polling loop: fetch markets, decide, execute, report.
package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lehacf-git/castle-bot/internal/config"
	"github.com/lehacf-git/castle-bot/internal/diagnostics"
	"github.com/lehacf-git/castle-bot/internal/exchange"
	"github.com/lehacf-git/castle-bot/internal/execution"
	"github.com/lehacf-git/castle-bot/internal/metrics"
	"github.com/lehacf-git/castle-bot/internal/news"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
	"github.com/lehacf-git/castle-bot/internal/portfolio"
	"github.com/lehacf-git/castle-bot/internal/report"
	"github.com/lehacf-git/castle-bot/internal/strategy"
)

// HeadlineSource yields recent headlines for the news signal. The RSS
// collector satisfies it; tests substitute fixed slices.
type HeadlineSource interface {
	Recent(ctx context.Context, now time.Time, lookback time.Duration) ([]news.Headline, error)
}

// Options wires one run together. Everything is injected so tests can drive
// single cycles against stub sources.
type Options struct {
	Cfg       *config.Config
	Mode      string
	Source    exchange.Source
	Executor  execution.Executor
	Headlines HeadlineSource
	Writer    *report.RunWriter
	Log       zerolog.Logger
	Duration  time.Duration
	Cycle     time.Duration
}

type decisionRow struct {
	ts       time.Time
	decision strategy.Decision
}

type equityRow struct {
	ts          time.Time
	exposureUSD float64
	mtmUSD      float64
	contracts   int
}

// Runner owns the per-run state: ledger, cooldown, diagnostics, artifacts.
type Runner struct {
	opts     Options
	params   strategy.Params
	ledger   *portfolio.Ledger
	cooldown *strategy.Cooldown
	diag     *diagnostics.RunDiagnostics
	recorder *report.JSONLRecorder

	trades    []execution.Record
	decisions []decisionRow
	equity    []equityRow
}

// New builds a runner from options. The trade recorder appends inside the run
// directory so partial runs still leave a trail.
func New(opts Options) (*Runner, error) {
	if opts.Cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if opts.Source == nil || opts.Executor == nil {
		return nil, fmt.Errorf("runner needs a market source and an executor")
	}
	recorder, err := report.NewJSONLRecorder(opts.Writer.Dir() + "/trades.jsonl")
	if err != nil {
		return nil, fmt.Errorf("open trade recorder: %w", err)
	}

	s := opts.Cfg.Strategy
	r := opts.Cfg.Risk
	params := strategy.Params{
		MinEdgeProb:         s.MinEdgeProb,
		MaxSpreadCents:      s.MaxSpreadCents,
		MinDepthContracts:   s.MinDepthContracts,
		BankrollUSD:         r.BankrollUSD,
		MaxRiskPerMarketUSD: r.MaxRiskPerMarketUSD,
		MaxTotalExposureUSD: r.MaxTotalExposureUSD,
		MakerOnly:           s.MakerOnly,
		TakerFeeCents:       s.TakerFeeCents,
		NewsLookback:        time.Duration(opts.Cfg.News.LookbackHours) * time.Hour,
		EnableTakerTest:     s.EnableTakerTest,
	}

	return &Runner{
		opts:     opts,
		params:   params,
		ledger:   portfolio.NewLedger(),
		cooldown: strategy.NewCooldown(time.Duration(s.CooldownSeconds) * time.Second),
		diag:     diagnostics.New(),
		recorder: recorder,
	}, nil
}

// Diagnostics exposes the run counters, mainly for tests.
func (r *Runner) Diagnostics() *diagnostics.RunDiagnostics { return r.diag }

// Ledger exposes the position ledger, mainly for tests.
func (r *Runner) Ledger() *portfolio.Ledger { return r.ledger }

// Run loops Cycle on a fixed cadence until the duration elapses or the
// context is cancelled, then writes the run artifacts.
func (r *Runner) Run(ctx context.Context) error {
	deadline := time.Now().Add(r.opts.Duration)
	ticker := time.NewTicker(r.opts.Cycle)
	defer ticker.Stop()
	defer r.recorder.Close()

	r.opts.Log.Info().Str("mode", r.opts.Mode).
		Dur("duration", r.opts.Duration).Dur("cycle", r.opts.Cycle).
		Msg("run starting")

	for {
		if err := r.Cycle(ctx, time.Now().UTC()); err != nil {
			r.opts.Log.Error().Err(err).Msg("cycle failed")
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			r.opts.Log.Info().Msg("run interrupted")
			return r.finish()
		case <-ticker.C:
		}
	}
	return r.finish()
}

// Cycle performs one full pass over the market universe.
func (r *Runner) Cycle(ctx context.Context, now time.Time) error {
	markets, err := r.opts.Source.Markets(ctx, r.opts.Cfg.Exchange.LimitMarkets)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}
	r.diag.MarketsFetched += len(markets)

	var headlines []news.Headline
	if r.opts.Headlines != nil {
		lookback := strategy.Input{}.NewsLookbackOrDefault(r.params)
		headlines, err = r.opts.Headlines.Recent(ctx, now, lookback)
		if err != nil {
			r.opts.Log.Warn().Err(err).Msg("headline fetch failed, deciding without news")
			headlines = nil
		}
	}

	midsYes := make(map[string]float64, len(markets))

	for _, mkt := range markets {
		metrics.MarketsScannedTotal.Inc()

		book, err := r.opts.Source.Orderbook(ctx, mkt.Ticker)
		if err != nil {
			r.opts.Log.Warn().Err(err).Str("ticker", mkt.Ticker).Msg("orderbook fetch failed")
			r.skip(mkt.Ticker, "orderbook_error")
			continue
		}
		if !book.Empty() {
			r.diag.MarketsWithOrderbooks++
		}
		bp := orderbook.Best(book)
		if mid := orderbook.MidProb(bp.BestYesBid, bp.BestYesAsk); mid != nil {
			midsYes[mkt.Ticker] = *mid
		}

		if !r.cooldown.CanDecide(mkt.Ticker, now) {
			r.skip(mkt.Ticker, "cooldown")
			continue
		}

		decision, skipped := strategy.Decide(strategy.Input{
			Ticker:             mkt.Ticker,
			Title:              mkt.Title,
			Book:               book,
			Now:                now,
			Headlines:          headlines,
			CurrentExposureUSD: r.ledger.ExposureUSD(),
		}, r.params)
		if skipped != nil {
			r.skip(skipped.Ticker, skipped.Reason)
			continue
		}

		r.diag.DecisionsGenerated++
		metrics.DecisionsTotal.WithLabelValues(string(decision.Side)).Inc()
		r.decisions = append(r.decisions, decisionRow{ts: now, decision: *decision})
		r.cooldown.Record(mkt.Ticker, now)

		r.diag.OrdersAttempted++
		metrics.OrdersTotal.WithLabelValues(r.opts.Mode).Inc()

		rec, err := r.opts.Executor.Execute(ctx, now, *decision, book)
		if err != nil {
			r.opts.Log.Error().Err(err).Str("ticker", decision.Ticker).Msg("execution failed")
			continue
		}
		if rec == nil {
			// Paper maker orders rest unfilled.
			continue
		}
		r.applyRecord(*rec)
	}

	r.equity = append(r.equity, equityRow{
		ts:          now,
		exposureUSD: r.ledger.ExposureUSD(),
		mtmUSD:      r.ledger.MarkToMarketUSD(midsYes),
		contracts:   r.ledger.TotalContracts(),
	})
	return nil
}

func (r *Runner) skip(ticker, reason string) {
	r.diag.LogSkip(ticker, reason)
	metrics.SkipsTotal.WithLabelValues(reason).Inc()
}

// applyRecord folds an execution record into the ledger and counters. Training
// records are tallied but never become positions.
func (r *Runner) applyRecord(rec execution.Record) {
	r.trades = append(r.trades, rec)
	r.recorder.Record(rec)
	metrics.FillsTotal.WithLabelValues(rec.Mode).Inc()

	switch rec.Mode {
	case config.ModePaper:
		r.diag.TradesFilledPaper++
	case config.ModeTraining:
		r.diag.TradesRecordedWould++
	default:
		r.diag.TradesSubmittedLive++
	}

	if !rec.Executed {
		return
	}
	pos := r.ledger.ApplyBuy(portfolio.Key{Ticker: rec.Ticker, Side: rec.Side}, rec.PriceCents, rec.Count)
	r.opts.Log.Info().Str("ticker", rec.Ticker).Str("side", string(rec.Side)).
		Int("qty", pos.Qty).Float64("avg_price_cents", pos.AvgPriceCents).
		Msg("position updated")
}

// finish writes the end-of-run artifacts into the run directory.
func (r *Runner) finish() error {
	w := r.opts.Writer

	tradeRows := make([][]string, 0, len(r.trades))
	for _, t := range r.trades {
		tradeRows = append(tradeRows, []string{
			t.Ts.Format(time.RFC3339),
			t.Ticker,
			string(t.Side),
			t.Action,
			strconv.Itoa(t.PriceCents),
			strconv.Itoa(t.Count),
			strconv.Itoa(t.FeeCents),
			t.Mode,
			t.ExternalOrderID,
			strconv.FormatBool(t.Executed),
		})
	}
	if err := w.WriteCSV("trades.csv",
		[]string{"ts", "ticker", "side", "action", "price_cents", "count", "fee_cents", "mode", "external_order_id", "executed"},
		tradeRows); err != nil {
		return err
	}

	decisionRows := make([][]string, 0, len(r.decisions))
	for _, d := range r.decisions {
		decisionRows = append(decisionRows, []string{
			d.ts.Format(time.RFC3339),
			d.decision.Ticker,
			string(d.decision.Side),
			d.decision.Action,
			strconv.Itoa(d.decision.PriceCents),
			strconv.Itoa(d.decision.Count),
			strconv.FormatFloat(d.decision.PMarket, 'f', 4, 64),
			strconv.FormatFloat(d.decision.PModel, 'f', 4, 64),
			strconv.FormatFloat(d.decision.Edge, 'f', 4, 64),
			d.decision.Reason,
		})
	}
	if err := w.WriteCSV("decisions.csv",
		[]string{"ts", "ticker", "side", "action", "price_cents", "count", "p_market", "p_model", "edge", "reason"},
		decisionRows); err != nil {
		return err
	}

	equityRows := make([][]string, 0, len(r.equity))
	for _, e := range r.equity {
		equityRows = append(equityRows, []string{
			e.ts.Format(time.RFC3339),
			strconv.FormatFloat(e.exposureUSD, 'f', 2, 64),
			strconv.FormatFloat(e.mtmUSD, 'f', 2, 64),
			strconv.Itoa(e.contracts),
		})
	}
	if err := w.WriteCSV("equity.csv",
		[]string{"ts", "exposure_usd", "mark_to_market_usd", "contracts"},
		equityRows); err != nil {
		return err
	}

	summary := r.diag.ToMap()
	summary["mode"] = r.opts.Mode
	summary["trades"] = len(r.trades)
	summary["final_exposure_usd"] = r.ledger.ExposureUSD()
	if err := w.WriteJSON("summary.json", summary); err != nil {
		return err
	}
	if err := w.WriteJSON("skip_reasons.json", r.diag.SkipCounts); err != nil {
		return err
	}

	// Training runs carry an extra digest of what the engine would have done.
	if tr, ok := r.opts.Executor.(interface{ Summary() map[string]any }); ok {
		if err := w.WriteJSON("training_summary.json", tr.Summary()); err != nil {
			return err
		}
	}

	if err := config.Save(w.Dir()+"/config.yaml", r.opts.Cfg); err != nil {
		return err
	}
	if err := w.WriteJSON("config.redacted.json", report.RedactConfig(flattenConfig(r.opts.Cfg))); err != nil {
		return err
	}

	r.opts.Log.Info().Str("dir", w.Dir()).Msg("run artifacts written")
	fmt.Println(r.diag.Summary())
	return nil
}

// flattenConfig renders the config as dotted string keys for the redacted dump.
func flattenConfig(cfg *config.Config) map[string]string {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil
	}
	flat := make(map[string]string)
	flattenInto(flat, "", tree)
	return flat
}

func flattenInto(out map[string]string, prefix string, v any) {
	switch t := v.(type) {
	case map[string]any:
		for key, child := range t {
			if prefix != "" {
				key = prefix + "." + key
			}
			flattenInto(out, key, child)
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	default:
		out[prefix] = fmt.Sprint(t)
	}
}
