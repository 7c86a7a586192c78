package models

import (
	"testing"
	"time"
)

func TestStrengthFromConfidence(t *testing.T) {
	cases := []struct {
		conf float64
		want SignalStrength
	}{
		{0.2, StrengthWeak},
		{0.49, StrengthWeak},
		{0.5, StrengthModerate},
		{0.69, StrengthModerate},
		{0.7, StrengthStrong},
		{0.84, StrengthStrong},
		{0.85, StrengthVeryStrong},
		{1.0, StrengthVeryStrong},
	}
	for _, c := range cases {
		if got := StrengthFromConfidence(c.conf); got != c.want {
			t.Fatalf("confidence %v: got %s want %s", c.conf, got, c.want)
		}
	}
}

func TestRevalidate(t *testing.T) {
	s := TradingSignal{RiskReward: 2.0, PositionSizePct: 0.015}
	s.Revalidate()
	if !s.Valid {
		t.Fatalf("expected valid signal")
	}

	s.RiskReward = 1.2
	s.Revalidate()
	if s.Valid {
		t.Fatalf("risk/reward below floor must invalidate")
	}

	s.RiskReward = 2.0
	s.PositionSizePct = 0.05
	s.Revalidate()
	if s.Valid {
		t.Fatalf("oversized position must invalidate")
	}
}

func TestDefaultCategorySpecsRiskReward(t *testing.T) {
	for cat, spec := range DefaultCategorySpecs() {
		if spec.Category != cat {
			t.Fatalf("%s: category mismatch", cat)
		}
		if rr := spec.TPMinPct / spec.SLMinPct; rr < MinRiskReward {
			t.Fatalf("%s: band floor risk/reward %.2f below minimum %.2f", cat, rr, MinRiskReward)
		}
		if spec.HoldingMin >= spec.HoldingMax {
			t.Fatalf("%s: holding range inverted", cat)
		}
	}
}

func TestSignalBatchActive(t *testing.T) {
	now := time.Now()
	b := SignalBatch{Signals: []TradingSignal{
		{Symbol: "BTC", Expiry: now.Add(time.Hour)},
		{Symbol: "ETH", Expiry: now.Add(-time.Hour)},
	}}
	active := b.Active(now)
	if len(active) != 1 || active[0].Symbol != "BTC" {
		t.Fatalf("expected only the unexpired signal, got %v", active)
	}
}

func TestExpiredZeroExpiry(t *testing.T) {
	s := TradingSignal{}
	if s.Expired(time.Now()) {
		t.Fatalf("zero expiry must never expire")
	}
}
