package fusion

import (
	"strings"
	"testing"

	"trademate/internal/domain"
)

func TestRecommendBuckets(t *testing.T) {
	em := NewEmitter(DefaultPolicy().Thresholds)
	cases := []struct {
		score float64
		want  domain.Recommendation
	}{
		{0.9, domain.StrongBuy},
		{0.6, domain.StrongBuy}, // boundary is inclusive
		{0.59, domain.Buy},
		{0.2, domain.Buy},
		{0.19, domain.Hold},
		{0, domain.Hold},
		{-0.19, domain.Hold},
		{-0.2, domain.Sell},
		{-0.59, domain.Sell},
		{-0.6, domain.StrongSell},
		{-1, domain.StrongSell},
	}
	for _, tc := range cases {
		if got := em.Recommend(tc.score); got != tc.want {
			t.Errorf("Recommend(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestTierBuckets(t *testing.T) {
	em := NewEmitter(DefaultPolicy().Thresholds)
	cases := []struct {
		confidence float64
		want       domain.ConfidenceTier
	}{
		{1, domain.TierHigh},
		{0.7, domain.TierHigh},
		{0.69, domain.TierMedium},
		{0.4, domain.TierMedium},
		{0.39, domain.TierLow},
		{0, domain.TierLow},
	}
	for _, tc := range cases {
		if got := em.Tier(tc.confidence); got != tc.want {
			t.Errorf("Tier(%v) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestBuildRationaleAnnotatesEverySignal(t *testing.T) {
	em := NewEmitter(DefaultPolicy().Thresholds)
	contributing := []domain.WeightedSignal{
		{
			Signal: domain.Signal{
				Source: domain.SourceTechnical, Score: 0.5, Confidence: 0.8,
				Rationale: []string{"rsi 28.1 (oversold)"},
			},
			WeightShare: 0.65, Freshness: 0.9,
		},
		{
			Signal:      domain.Signal{Source: domain.SourceSentiment, Score: -0.2, Confidence: 0.4},
			WeightShare: 0.35, Freshness: 0.5,
		},
	}
	lines := em.BuildRationale(contributing, []string{"policy: no signal yet"}, false, true)

	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"technical:", "weight=65.00%", "rsi 28.1 (oversold)",
		"sentiment:", "excluded policy: no signal yet",
		"sources disagree in direction",
		"confidence tier lowered one step due to disagreement",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("rationale missing %q:\n%s", want, joined)
		}
	}
}

func TestFormatDecision(t *testing.T) {
	d := &domain.FusedDecision{
		Symbol:         "BTC",
		Recommendation: domain.StrongBuy,
		FusedScore:     0.7083,
		Confidence:     0.81,
		ConfidenceTier: domain.TierHigh,
		Agreement:      true,
		Rationale:      []string{"technical: score=0.8000 confidence=0.9000 weight=37.50% freshness=1.00"},
	}
	out := FormatDecision(d)
	for _, want := range []string{"Signal for BTC", "STRONG_BUY", "+0.7083", "0.81 (high)", "Sources agree: yes", "- technical:"} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted decision missing %q:\n%s", want, out)
		}
	}
}
