// Package news scores headline relevance and sentiment against market titles.
package news

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Headline is one timestamped news title, already deduplicated by the caller.
type Headline struct {
	Ts    time.Time `json:"ts"`
	Title string    `json:"title"`
}

// Signal is a bounded tilt derived from recent headlines for one market.
type Signal struct {
	Score  float64 // [-1, 1]
	Weight float64 // [0, 1]; zero when nothing matched
	Reason string
}

// sentiment decay half-life
const halfLife = 6 * time.Hour

var positiveWords = map[string]struct{}{
	"beat": {}, "surge": {}, "rise": {}, "gain": {}, "record": {}, "strong": {},
	"approval": {}, "win": {}, "wins": {}, "leading": {}, "ahead": {}, "bullish": {}, "positive": {},
}

var negativeWords = map[string]struct{}{
	"fall": {}, "down": {}, "drop": {}, "plunge": {}, "weak": {}, "miss": {}, "loss": {},
	"loses": {}, "behind": {}, "bearish": {}, "negative": {}, "recession": {}, "inflation": {},
	"lawsuit": {}, "crisis": {},
}

// Tokenize splits text into lowercase alphanumeric tokens of length >= 3.
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() >= 3 {
			tokens[strings.ToLower(b.String())] = struct{}{}
		}
		b.Reset()
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// SentimentScore counts positive vs negative keywords; no hits score zero.
// The denominator floor of 5 keeps single-keyword headlines from saturating.
func SentimentScore(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	pos, neg := 0, 0
	for tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}
	return float64(pos-neg) / math.Max(5, float64(pos+neg))
}

// MatchStrength measures token overlap between a market title and a headline.
// The denominator floor of 3 keeps short titles from over-weighting coincidental matches.
func MatchStrength(marketTitle, headline string) float64 {
	mt := Tokenize(marketTitle)
	ht := Tokenize(headline)
	if len(mt) == 0 || len(ht) == 0 {
		return 0
	}
	inter := 0
	for tok := range mt {
		if _, ok := ht[tok]; ok {
			inter++
		}
	}
	return float64(inter) / math.Max(3, float64(len(mt)))
}

// Aggregate folds recent headlines into one time-decayed signal for a market.
// Headlines outside [now-lookback, now] are ignored.
func Aggregate(marketTitle string, items []Headline, now time.Time, lookback time.Duration) Signal {
	var total, wsum float64
	bestReason := ""
	for _, item := range items {
		age := now.Sub(item.Ts)
		if age < 0 || age > lookback {
			continue
		}
		ms := MatchStrength(marketTitle, item.Title)
		if ms <= 0 {
			continue
		}
		s := SentimentScore(item.Title)
		recency := math.Exp(-age.Seconds() / halfLife.Seconds())
		w := ms * recency
		total += s * w
		wsum += w
		if w > 0.25 && bestReason == "" {
			title := item.Title
			if len(title) > 120 {
				title = title[:120]
			}
			bestReason = fmt.Sprintf("news=%q ms=%.2f s=%.2f", title, ms, s)
		}
	}
	if wsum == 0 {
		return Signal{Score: 0, Weight: 0, Reason: "no relevant news"}
	}
	if bestReason == "" {
		bestReason = "news matched"
	}
	return Signal{
		Score:  clamp(total/wsum, -1, 1),
		Weight: clamp(wsum, 0, 1),
		Reason: bestReason,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
