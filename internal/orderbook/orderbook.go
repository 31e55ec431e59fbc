// Package orderbook derives prices and depth from the two bid ladders of a binary market.
package orderbook

// Level is a resting bid: price in cents [0,100] and contract count.
type Level struct {
	PriceCents int `json:"price_cents"`
	Count      int `json:"count"`
}

// Book holds both bid ladders, ascending by price; the best bid is the last entry.
type Book struct {
	YesBids []Level `json:"yes_bids"`
	NoBids  []Level `json:"no_bids"`
}

// Empty reports whether both ladders are empty.
func (b Book) Empty() bool { return len(b.YesBids) == 0 && len(b.NoBids) == 0 }

// BestPrices collects the best bids and the asks implied from the complementary side.
// A field is nil when the source ladder is empty.
type BestPrices struct {
	BestYesBid *int
	BestYesAsk *int // 100 - best no bid
	BestNoBid  *int
	BestNoAsk  *int // 100 - best yes bid
}

// Best extracts best bids from the ladders and implies the asks.
// Malformed prices pass through untouched; validation is the caller's job.
func Best(b Book) BestPrices {
	var bp BestPrices
	if n := len(b.YesBids); n > 0 {
		v := b.YesBids[n-1].PriceCents
		bp.BestYesBid = &v
		ask := 100 - v
		bp.BestNoAsk = &ask
	}
	if n := len(b.NoBids); n > 0 {
		v := b.NoBids[n-1].PriceCents
		bp.BestNoBid = &v
		ask := 100 - v
		bp.BestYesAsk = &ask
	}
	return bp
}

// MidProb returns (bid+ask)/200 as a probability, or nil if either side is missing.
func MidProb(bestYesBid, bestYesAsk *int) *float64 {
	if bestYesBid == nil || bestYesAsk == nil {
		return nil
	}
	p := float64(*bestYesBid+*bestYesAsk) / 200.0
	return &p
}

// SpreadCents returns ask minus bid. A crossed or locked book yields a zero or
// negative spread, which is passed through as-is for the caller to reject.
func SpreadCents(bestYesBid, bestYesAsk *int) *int {
	if bestYesBid == nil || bestYesAsk == nil {
		return nil
	}
	s := *bestYesAsk - *bestYesBid
	return &s
}

// DepthWithin sums contract counts from the best bid inward on each ladder while
// the price sits within bandCents of the best, stopping at the first entry outside.
// Ladders are assumed properly ordered; no re-sorting happens here.
func DepthWithin(b Book, bandCents int) (yesDepth, noDepth int) {
	yesDepth = ladderDepth(b.YesBids, bandCents)
	noDepth = ladderDepth(b.NoBids, bandCents)
	return yesDepth, noDepth
}

func ladderDepth(bids []Level, bandCents int) int {
	if len(bids) == 0 {
		return 0
	}
	best := bids[len(bids)-1].PriceCents
	depth := 0
	for i := len(bids) - 1; i >= 0; i-- {
		if best-bids[i].PriceCents > bandCents {
			break
		}
		depth += bids[i].Count
	}
	return depth
}
