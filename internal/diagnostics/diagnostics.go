// Package diagnostics collects run-scoped counters explaining what the engine did and why.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"
)

// Number of skip-reason entries kept when serializing, to bound report size.
const skipSampleSize = 20

// RunDiagnostics tallies one run. Created at run start, mutated throughout,
// serialized at run end; never persisted across runs. Passed by pointer into
// the run loop rather than living as ambient state.
type RunDiagnostics struct {
	MarketsFetched        int
	MarketsWithOrderbooks int
	DecisionsGenerated    int
	OrdersAttempted       int
	TradesFilledPaper     int
	TradesRecordedWould   int
	TradesSubmittedLive   int

	// per-skip-tag histogram
	SkipCounts map[string]int
	// last skip reason per ticker, sampled on serialization
	SkipReasons map[string]string
}

// New returns an empty diagnostics block.
func New() *RunDiagnostics {
	return &RunDiagnostics{
		SkipCounts:  make(map[string]int),
		SkipReasons: make(map[string]string),
	}
}

// LogSkip records why a market was skipped.
func (d *RunDiagnostics) LogSkip(ticker, reason string) {
	d.SkipCounts[reason]++
	d.SkipReasons[ticker] = reason
}

// ToMap produces a JSON-ready view with a bounded skip-reason sample.
func (d *RunDiagnostics) ToMap() map[string]any {
	sampleKeys := make([]string, 0, len(d.SkipReasons))
	for ticker := range d.SkipReasons {
		sampleKeys = append(sampleKeys, ticker)
	}
	sort.Strings(sampleKeys)
	if len(sampleKeys) > skipSampleSize {
		sampleKeys = sampleKeys[:skipSampleSize]
	}
	sample := make(map[string]string, len(sampleKeys))
	for _, ticker := range sampleKeys {
		sample[ticker] = d.SkipReasons[ticker]
	}

	skipCounts := make(map[string]int, len(d.SkipCounts))
	for reason, n := range d.SkipCounts {
		skipCounts[reason] = n
	}

	return map[string]any{
		"markets_fetched":         d.MarketsFetched,
		"markets_with_orderbooks": d.MarketsWithOrderbooks,
		"decisions_generated":     d.DecisionsGenerated,
		"orders_attempted":        d.OrdersAttempted,
		"trades_filled_paper":     d.TradesFilledPaper,
		"trades_recorded_would":   d.TradesRecordedWould,
		"trades_submitted_live":   d.TradesSubmittedLive,
		"skip_counts":             skipCounts,
		"skip_reasons_sample":     sample,
	}
}

// Summary renders a human-readable digest for end-of-run logs.
func (d *RunDiagnostics) Summary() string {
	lines := []string{
		fmt.Sprintf("Markets fetched: %d", d.MarketsFetched),
		fmt.Sprintf("Markets with orderbooks: %d", d.MarketsWithOrderbooks),
		fmt.Sprintf("Decisions generated: %d", d.DecisionsGenerated),
		fmt.Sprintf("Orders attempted: %d", d.OrdersAttempted),
	}

	reasons := make([]string, 0, len(d.SkipCounts))
	for reason := range d.SkipCounts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		lines = append(lines, fmt.Sprintf("  skip %s: %d", reason, d.SkipCounts[reason]))
	}

	if d.TradesFilledPaper > 0 {
		lines = append(lines, fmt.Sprintf("Trades filled (paper): %d", d.TradesFilledPaper))
	}
	if d.TradesRecordedWould > 0 {
		lines = append(lines, fmt.Sprintf("Would-trades recorded (training): %d", d.TradesRecordedWould))
	}
	if d.TradesSubmittedLive > 0 {
		lines = append(lines, fmt.Sprintf("Trades submitted (live): %d", d.TradesSubmittedLive))
	}
	return strings.Join(lines, "\n")
}
