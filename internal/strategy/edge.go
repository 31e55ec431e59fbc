// Package strategy turns order books and news into sized trade decisions.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/lehacf-git/castle-bot/internal/market"
	"github.com/lehacf-git/castle-bot/internal/news"
	"github.com/lehacf-git/castle-bot/internal/orderbook"
)

// Sizing saturates at full risk once |edge| reaches this many probability points.
const fullSizeEdge = 0.10

// News tilt magnitude cap, in probability points.
const newsTiltCap = 0.08

// Decision is a fully sized trade candidate. Immutable once produced.
type Decision struct {
	Ticker     string
	Side       market.Side
	Action     string // always "buy"
	PriceCents int
	Count      int
	PMarket    float64
	PModel     float64
	Edge       float64
	Reason     string
}

// Skip explains why a market produced no decision.
type Skip struct {
	Ticker string
	Reason string // machine-readable tag
	Detail string
}

// Params carries the configured thresholds for one run.
type Params struct {
	MinEdgeProb         float64
	MaxSpreadCents      int
	MinDepthContracts   int
	BankrollUSD         float64
	MaxRiskPerMarketUSD float64
	MaxTotalExposureUSD float64
	MakerOnly           bool
	TakerFeeCents       int
	NewsLookback        time.Duration
	// EnableTakerTest lets paper and training runs exercise taker pricing
	// even when the run is otherwise maker-only.
	EnableTakerTest bool
}

// Input is everything Decide needs for one market evaluation. The current
// exposure is passed in, not queried; the ledger stays owned by the run loop.
type Input struct {
	Ticker             string
	Title              string
	Book               orderbook.Book
	Now                time.Time
	Headlines          []news.Headline
	CurrentExposureUSD float64
}

// Decide evaluates one market and returns exactly one of a decision or a skip.
// It is a pure function: no hidden state, no side effects, no errors in normal
// operation.
func Decide(in Input, p Params) (*Decision, *Skip) {
	if in.Book.Empty() {
		return nil, &Skip{in.Ticker, "empty_orderbook", "Both yes_bids and no_bids are empty"}
	}

	bp := orderbook.Best(in.Book)
	if bp.BestYesBid == nil || bp.BestYesAsk == nil {
		return nil, &Skip{in.Ticker, "no_best_prices",
			fmt.Sprintf("yes_bid=%s, yes_ask=%s", fmtCents(bp.BestYesBid), fmtCents(bp.BestYesAsk))}
	}

	sp := orderbook.SpreadCents(bp.BestYesBid, bp.BestYesAsk)
	if sp == nil {
		return nil, &Skip{in.Ticker, "no_spread", "Could not compute spread"}
	}
	// A crossed book yields a negative spread that always passes this filter.
	// Intentionally left as-is; see DESIGN.md.
	if *sp > p.MaxSpreadCents {
		return nil, &Skip{in.Ticker, "spread_too_wide",
			fmt.Sprintf("spread=%d¢ > max=%d¢", *sp, p.MaxSpreadCents)}
	}

	yesDepth, noDepth := orderbook.DepthWithin(in.Book, 5)
	maxDepth := yesDepth
	if noDepth > maxDepth {
		maxDepth = noDepth
	}
	if maxDepth < p.MinDepthContracts {
		return nil, &Skip{in.Ticker, "insufficient_depth",
			fmt.Sprintf("max_depth=%d < min=%d", maxDepth, p.MinDepthContracts)}
	}

	pmPtr := orderbook.MidProb(bp.BestYesBid, bp.BestYesAsk)
	if pmPtr == nil {
		return nil, &Skip{in.Ticker, "no_mid_prob", "Could not compute mid probability"}
	}
	pm := *pmPtr

	lookback := in.NewsLookbackOrDefault(p)
	ns := news.Aggregate(in.Title, in.Headlines, in.Now, lookback)
	tilt := newsTiltCap * ns.Score * math.Min(1, ns.Weight)
	pModel := math.Min(0.99, math.Max(0.01, pm+tilt))

	edge := pModel - pm
	if math.Abs(edge) < p.MinEdgeProb {
		return nil, &Skip{in.Ticker, "insufficient_edge",
			fmt.Sprintf("abs(edge)=%.4f < min=%.4f", math.Abs(edge), p.MinEdgeProb)}
	}

	// Taker orders pay the fee, so crossing requires extra edge.
	feeProb := float64(p.TakerFeeCents) / 100.0
	makerOnly := p.MakerOnly && !p.EnableTakerTest
	if !makerOnly {
		if math.Abs(edge) < p.MinEdgeProb+feeProb {
			return nil, &Skip{in.Ticker, "insufficient_edge_after_fees",
				fmt.Sprintf("abs(edge)=%.4f < min+fee=%.4f", math.Abs(edge), p.MinEdgeProb+feeProb)}
		}
	}

	side := market.Yes
	if edge < 0 {
		side = market.No
	}

	var price int
	if makerOnly {
		// Rest at the best same-side bid.
		switch side {
		case market.Yes:
			if bp.BestYesBid == nil {
				return nil, &Skip{in.Ticker, "no_yes_bid", "Cannot place maker order, no yes bid"}
			}
			price = *bp.BestYesBid
		default:
			if bp.BestNoBid == nil {
				return nil, &Skip{in.Ticker, "no_no_bid", "Cannot place maker order, no no bid"}
			}
			price = *bp.BestNoBid
		}
	} else {
		// Cross the implied same-side ask.
		switch side {
		case market.Yes:
			if bp.BestYesAsk == nil {
				return nil, &Skip{in.Ticker, "no_yes_ask", "Cannot cross, no yes ask"}
			}
			price = *bp.BestYesAsk
		default:
			if bp.BestNoAsk == nil {
				return nil, &Skip{in.Ticker, "no_no_ask", "Cannot cross, no no ask"}
			}
			price = *bp.BestNoAsk
		}
	}

	maxRisk := math.Min(p.MaxRiskPerMarketUSD, math.Max(0, p.MaxTotalExposureUSD-in.CurrentExposureUSD))
	if maxRisk <= 0 {
		return nil, &Skip{in.Ticker, "max_exposure_reached",
			fmt.Sprintf("current=%.2f >= max=%.2f", in.CurrentExposureUSD, p.MaxTotalExposureUSD)}
	}

	costPerContract := float64(price) / 100.0
	if costPerContract <= 0 {
		return nil, &Skip{in.Ticker, "invalid_price", fmt.Sprintf("price=%d¢ invalid", price)}
	}

	// Notional scales linearly with edge, saturating at full risk.
	targetUSD := maxRisk * math.Min(1, math.Abs(edge)/fullSizeEdge)
	count := int(math.Round(targetUSD / costPerContract))
	if count < 1 {
		count = 1
	}
	if limit := int(maxRisk / costPerContract); count > limit {
		count = limit
	}
	if count < 1 {
		count = 1
	}

	modeNote := ""
	if p.EnableTakerTest {
		modeNote = "(taker_test)"
	}
	reason := fmt.Sprintf("pm=%.3f model=%.3f edge=%.3f spread=%d¢ ns=(%.2f,%.2f) %s %s",
		pm, pModel, edge, *sp, ns.Score, ns.Weight, ns.Reason, modeNote)

	return &Decision{
		Ticker:     in.Ticker,
		Side:       side,
		Action:     "buy",
		PriceCents: price,
		Count:      count,
		PMarket:    pm,
		PModel:     pModel,
		Edge:       edge,
		Reason:     reason,
	}, nil
}

// NewsLookbackOrDefault applies the configured lookback with a 24h fallback.
func (in Input) NewsLookbackOrDefault(p Params) time.Duration {
	if p.NewsLookback > 0 {
		return p.NewsLookback
	}
	return 24 * time.Hour
}

func fmtCents(v *int) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%d", *v)
}
