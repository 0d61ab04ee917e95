package fusion

import (
	"fmt"
	"math"
	"time"

	"trademate/internal/domain"
)

// DecayShape selects the freshness curve applied to a signal's age.
type DecayShape string

const (
	DecayLinear      DecayShape = "linear"
	DecayExponential DecayShape = "exp"
)

// DecisionThresholds maps fused score to a recommendation bucket and
// fused confidence to a display tier. Buy-side values are positive,
// sell-side negative.
type DecisionThresholds struct {
	StrongBuy  float64
	Buy        float64
	Sell       float64
	StrongSell float64

	TierHigh   float64
	TierMedium float64
}

// WeightingPolicy is the engine's configuration: per-source base weight,
// maximum signal age before exclusion, the decay shape, and the decision
// thresholds. It is validated once at startup and never mutated afterwards.
type WeightingPolicy struct {
	BaseWeights map[domain.SignalSource]float64
	MaxAge      map[domain.SignalSource]time.Duration
	Decay       DecayShape

	// DominanceThreshold is the weight share one source must exceed for
	// disagreement to be attributed to a dominant signal; below it the
	// confidence tier is widened downward by one step instead.
	DominanceThreshold float64

	Thresholds DecisionThresholds
}

// DefaultPolicy returns equal base weights, producer-cadence-shaped max
// ages, linear decay, and the illustrative thresholds from the design.
func DefaultPolicy() WeightingPolicy {
	return WeightingPolicy{
		BaseWeights: map[domain.SignalSource]float64{
			domain.SourceTechnical: 1.0,
			domain.SourceSentiment: 1.0,
			domain.SourcePolicy:    1.0,
		},
		MaxAge: map[domain.SignalSource]time.Duration{
			domain.SourceTechnical: 10 * time.Minute,
			domain.SourceSentiment: 45 * time.Minute,
			domain.SourcePolicy:    2 * time.Hour,
		},
		Decay:              DecayLinear,
		DominanceThreshold: 0.60,
		Thresholds: DecisionThresholds{
			StrongBuy:  0.6,
			Buy:        0.2,
			Sell:       -0.2,
			StrongSell: -0.6,
			TierHigh:   0.7,
			TierMedium: 0.4,
		},
	}
}

// Validate fails fast on malformed weights or overlapping thresholds.
func (p WeightingPolicy) Validate() error {
	for _, source := range domain.Sources {
		w, ok := p.BaseWeights[source]
		if !ok {
			return &ConfigurationError{Field: "base_weights", Reason: fmt.Sprintf("missing source %s", source)}
		}
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return &ConfigurationError{Field: "base_weights", Reason: fmt.Sprintf("weight for %s must be positive, got %v", source, w)}
		}
		age, ok := p.MaxAge[source]
		if !ok || age <= 0 {
			return &ConfigurationError{Field: "max_age", Reason: fmt.Sprintf("max age for %s must be positive", source)}
		}
	}
	if p.Decay != DecayLinear && p.Decay != DecayExponential {
		return &ConfigurationError{Field: "decay", Reason: fmt.Sprintf("unknown decay shape %q", p.Decay)}
	}
	if p.DominanceThreshold <= 0 || p.DominanceThreshold >= 1 {
		return &ConfigurationError{Field: "dominance_threshold", Reason: "must be in (0,1)"}
	}

	t := p.Thresholds
	if !(t.StrongSell < t.Sell && t.Sell < 0 && 0 < t.Buy && t.Buy < t.StrongBuy) {
		return &ConfigurationError{Field: "recommendation_thresholds", Reason: fmt.Sprintf(
			"must satisfy strong_sell < sell < 0 < buy < strong_buy, got %v < %v < 0 < %v < %v",
			t.StrongSell, t.Sell, t.Buy, t.StrongBuy)}
	}
	if t.StrongBuy > 1 || t.StrongSell < -1 {
		return &ConfigurationError{Field: "recommendation_thresholds", Reason: "outer thresholds must stay within [-1,1]"}
	}
	if !(0 < t.TierMedium && t.TierMedium < t.TierHigh && t.TierHigh <= 1) {
		return &ConfigurationError{Field: "tier_thresholds", Reason: fmt.Sprintf(
			"must satisfy 0 < medium < high <= 1, got medium=%v high=%v", t.TierMedium, t.TierHigh)}
	}
	return nil
}

// Freshness maps a signal's age to a [0,1] multiplier. It decreases
// monotonically and reaches 0 at the source's max age; anything older
// is excluded entirely by the engine before Freshness matters.
func (p WeightingPolicy) Freshness(source domain.SignalSource, age time.Duration) float64 {
	maxAge := p.MaxAge[source]
	if maxAge <= 0 || age >= maxAge {
		return 0
	}
	if age <= 0 {
		return 1
	}
	frac := float64(age) / float64(maxAge)
	switch p.Decay {
	case DecayExponential:
		// half-life at a third of the max age, hard cutoff at max age
		return math.Exp(-math.Ln2 * frac * 3)
	default:
		return 1 - frac
	}
}

// Clamp bounds v to [lo,hi], mapping NaN/Inf to 0.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
