package rl

import (
	"testing"
	"time"

	"trademate/internal/domain"
	"trademate/internal/technical"
)

func TestBuildStateLayoutIsStable(t *testing.T) {
	state := BuildState(StateInput{})
	if len(state) != len(StateFeatureNames) {
		t.Fatalf("state length %d does not match feature names %d", len(state), len(StateFeatureNames))
	}
	// neutral fallbacks: rsi at midpoint, everything else flat
	if state[0] != 0.5 {
		t.Fatalf("expected neutral rsi 0.5, got %v", state[0])
	}
	for i, v := range state[1:] {
		if v != 0 {
			t.Fatalf("expected neutral zero for %s, got %v", StateFeatureNames[i+1], v)
		}
	}
}

func TestBuildStateFoldsAllInputs(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := []domain.Candle{
		{Close: 100, OpenTime: base},
		{Close: 102, OpenTime: base.Add(time.Hour)},
		{Close: 99, OpenTime: base.Add(2 * time.Hour)},
		{Close: 103, OpenTime: base.Add(3 * time.Hour)},
	}
	state := BuildState(StateInput{
		Readings: []technical.Reading{
			{Name: "rsi", Raw: 72, Score: -0.44},
			{Name: "macd", Raw: 1.2, Score: 0.6},
			{Name: "volume", Raw: 2.1, Score: 0.7},
		},
		Snapshot:  &domain.PriceSnapshot{Volume24h: 3e9, Change24hPct: 4.5},
		Sentiment: &domain.Signal{Score: 0.3, Confidence: 0.8},
		Candles:   candles,
	})

	if state[0] != 0.72 {
		t.Fatalf("rsi_norm: got %v", state[0])
	}
	if state[1] != 0.6 {
		t.Fatalf("macd_score: got %v", state[1])
	}
	if state[2] != 3 {
		t.Fatalf("volume_busd: got %v", state[2])
	}
	if state[3] != 0.045 {
		t.Fatalf("change_24h: got %v", state[3])
	}
	if state[4] != 1 {
		t.Fatalf("trend: got %v", state[4])
	}
	if state[5] != 0.3 || state[6] != 0.8 {
		t.Fatalf("sentiment features: got %v %v", state[5], state[6])
	}
	if state[7] <= 0 {
		t.Fatalf("volatility must be positive for a moving series, got %v", state[7])
	}
	if state[8] != 2.1 {
		t.Fatalf("volume_z: got %v", state[8])
	}
	if state[9] != 0.6 {
		t.Fatalf("coverage: got %v", state[9])
	}
}

func TestBuildStateNegativeTrend(t *testing.T) {
	state := BuildState(StateInput{Snapshot: &domain.PriceSnapshot{Change24hPct: -2}})
	if state[4] != -1 {
		t.Fatalf("expected trend -1 for a down day, got %v", state[4])
	}
}
