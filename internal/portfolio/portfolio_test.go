package portfolio

import (
	"math"
	"testing"

	"github.com/lehacf-git/castle-bot/internal/market"
)

func TestApplyBuyWeightedAverage(t *testing.T) {
	pos := ApplyBuy(Position{}, 50, 10)
	if pos.Qty != 10 || pos.AvgPriceCents != 50 {
		t.Fatalf("expected qty=10 avg=50, got %+v", pos)
	}
	pos = ApplyBuy(pos, 70, 10)
	if pos.Qty != 20 || math.Abs(pos.AvgPriceCents-60) > 1e-9 {
		t.Fatalf("expected qty=20 avg=60, got %+v", pos)
	}
}

func TestApplyBuyIgnoresNonPositiveCount(t *testing.T) {
	pos := Position{Qty: 5, AvgPriceCents: 40}
	if got := ApplyBuy(pos, 80, 0); got != pos {
		t.Fatalf("zero count should be a no-op, got %+v", got)
	}
	if got := ApplyBuy(pos, 80, -3); got != pos {
		t.Fatalf("negative count should be a no-op, got %+v", got)
	}
}

func TestLedgerExposureUSD(t *testing.T) {
	ledger := NewLedger()
	ledger.ApplyBuy(Key{"ELEC-24", market.Yes}, 50, 10) // $5.00
	ledger.ApplyBuy(Key{"ELEC-24", market.No}, 30, 10)  // $3.00
	ledger.ApplyBuy(Key{"FED-CUT", market.Yes}, 20, 5)  // $1.00

	if got := ledger.ExposureUSD(); math.Abs(got-9.0) > 1e-9 {
		t.Fatalf("expected exposure 9.00, got %.4f", got)
	}
	if got := ledger.TotalContracts(); got != 25 {
		t.Fatalf("expected 25 contracts, got %d", got)
	}
}

func TestLedgerMarkToMarketUSD(t *testing.T) {
	ledger := NewLedger()
	ledger.ApplyBuy(Key{"ELEC-24", market.Yes}, 50, 10)
	ledger.ApplyBuy(Key{"ELEC-24", market.No}, 30, 10)
	ledger.ApplyBuy(Key{"FED-CUT", market.Yes}, 20, 5)

	mids := map[string]float64{"ELEC-24": 0.60}
	// yes: 10 * 60c = $6.00; no: 10 * 40c = $4.00; FED-CUT has no mid -> skipped.
	if got := ledger.MarkToMarketUSD(mids); math.Abs(got-10.0) > 1e-9 {
		t.Fatalf("expected MTM 10.00, got %.4f", got)
	}
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	ledger := NewLedger()
	key := Key{"ELEC-24", market.Yes}
	ledger.ApplyBuy(key, 50, 10)

	snap := ledger.Snapshot()
	snap[key] = Position{Qty: 999, AvgPriceCents: 1}
	if ledger.Position(key).Qty != 10 {
		t.Fatalf("mutating a snapshot must not touch the ledger")
	}
}
