package domain

import "time"

// SignalSource identifies which analytical pipeline produced a Signal.
type SignalSource string

const (
	SourceTechnical SignalSource = "technical"
	SourceSentiment SignalSource = "sentiment"
	SourcePolicy    SignalSource = "policy"
)

// Sources lists the three signal producers in fusion order.
var Sources = []SignalSource{SourceTechnical, SourceSentiment, SourcePolicy}

// Signal is the common currency between the three producers and the fusion
// engine: a bounded directional score with the producer's self-reported
// confidence. Score and Confidence are clamped before a Signal leaves a
// producer; a producer that cannot compute a value emits no Signal at all.
type Signal struct {
	Symbol     string       `json:"symbol"`
	Source     SignalSource `json:"source"`
	Score      float64      `json:"score"`      // [-1,1], negative = bearish
	Confidence float64      `json:"confidence"` // [0,1]
	Timestamp  time.Time    `json:"timestamp"`
	Rationale  []string     `json:"rationale,omitempty"`
}

// Age returns how old the underlying reading is at the given instant.
func (s Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

type Recommendation string

const (
	StrongSell Recommendation = "strong_sell"
	Sell       Recommendation = "sell"
	Hold       Recommendation = "hold"
	Buy        Recommendation = "buy"
	StrongBuy  Recommendation = "strong_buy"
)

type ConfidenceTier string

const (
	TierLow    ConfidenceTier = "low"
	TierMedium ConfidenceTier = "medium"
	TierHigh   ConfidenceTier = "high"
)

// Downgrade returns the tier one step below, saturating at low.
func (t ConfidenceTier) Downgrade() ConfidenceTier {
	switch t {
	case TierHigh:
		return TierMedium
	default:
		return TierLow
	}
}

// WeightedSignal is a contributing Signal annotated with the effective
// (freshness- and confidence-discounted) weight the engine gave it.
type WeightedSignal struct {
	Signal          Signal  `json:"signal"`
	EffectiveWeight float64 `json:"effective_weight"`
	WeightShare     float64 `json:"weight_share"` // fraction of total effective weight
	Freshness       float64 `json:"freshness"`    // [0,1] decay multiplier applied
}

// FusedDecision is the engine's output for a single decision request.
// Created fresh on every request, never mutated afterwards, never persisted.
type FusedDecision struct {
	Symbol              string           `json:"symbol"`
	Recommendation      Recommendation   `json:"recommendation"`
	FusedScore          float64          `json:"fused_score"`
	Confidence          float64          `json:"confidence"`
	ConfidenceTier      ConfidenceTier   `json:"confidence_tier"`
	Agreement           bool             `json:"agreement"`
	ContributingSignals []WeightedSignal `json:"contributing_signals"`
	ExcludedSources     []string         `json:"excluded_sources,omitempty"`
	Rationale           []string         `json:"rationale"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// SentimentReading is one per-source sentiment observation before aggregation.
type SentimentReading struct {
	SourceID   string    `json:"source_id"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// PolicyAction is the discrete action space of the trading policy.
type PolicyAction int

const (
	ActionBuy  PolicyAction = 0
	ActionSell PolicyAction = 1
	ActionHold PolicyAction = 2
)

func (a PolicyAction) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "hold"
	}
}

// PolicyOutput is the raw result of one policy inference call: the chosen
// action plus the per-action value estimates it was chosen from.
type PolicyOutput struct {
	Action       PolicyAction
	ActionValues []float64 // indexed by PolicyAction
	Continuous   *float64  // optional continuous recommendation, unbounded
	Timestamp    time.Time
}
