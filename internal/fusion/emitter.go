package fusion

import (
	"fmt"
	"strings"

	"trademate/internal/domain"
)

// Emitter maps a fused score and confidence onto the discrete
// recommendation and tier buckets, and assembles the human-readable
// rationale surfaced to the end user.
type Emitter struct {
	thresholds DecisionThresholds
}

func NewEmitter(thresholds DecisionThresholds) *Emitter {
	return &Emitter{thresholds: thresholds}
}

func (em *Emitter) Recommend(score float64) domain.Recommendation {
	t := em.thresholds
	switch {
	case score >= t.StrongBuy:
		return domain.StrongBuy
	case score >= t.Buy:
		return domain.Buy
	case score <= t.StrongSell:
		return domain.StrongSell
	case score <= t.Sell:
		return domain.Sell
	default:
		return domain.Hold
	}
}

func (em *Emitter) Tier(confidence float64) domain.ConfidenceTier {
	t := em.thresholds
	switch {
	case confidence >= t.TierHigh:
		return domain.TierHigh
	case confidence >= t.TierMedium:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// BuildRationale combines each contributing signal's own rationale,
// annotated with its effective weight share, plus exclusion and
// disagreement notes.
func (em *Emitter) BuildRationale(contributing []domain.WeightedSignal, excluded []string, agreement, downgraded bool) []string {
	lines := make([]string, 0, len(contributing)*2+len(excluded)+2)
	for _, ws := range contributing {
		lines = append(lines, fmt.Sprintf(
			"%s: score=%.4f confidence=%.4f weight=%.2f%% freshness=%.2f",
			ws.Signal.Source, ws.Signal.Score, ws.Signal.Confidence, ws.WeightShare*100, ws.Freshness,
		))
		for _, note := range ws.Signal.Rationale {
			lines = append(lines, fmt.Sprintf("  %s: %s", ws.Signal.Source, note))
		}
	}
	for _, reason := range excluded {
		lines = append(lines, "excluded "+reason)
	}
	if !agreement {
		lines = append(lines, "sources disagree in direction")
	}
	if downgraded {
		lines = append(lines, "confidence tier lowered one step due to disagreement")
	}
	return lines
}

// FormatDecision renders a FusedDecision as chat-ready text.
func FormatDecision(d *domain.FusedDecision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Signal for %s\n", d.Symbol)
	fmt.Fprintf(&sb, "Recommendation: %s\n", strings.ToUpper(string(d.Recommendation)))
	fmt.Fprintf(&sb, "Score: %+.4f\n", d.FusedScore)
	fmt.Fprintf(&sb, "Confidence: %.2f (%s)\n", d.Confidence, d.ConfidenceTier)
	if d.Agreement {
		sb.WriteString("Sources agree: yes\n")
	} else {
		sb.WriteString("Sources agree: no\n")
	}
	sb.WriteString("Rationale:\n")
	for _, line := range d.Rationale {
		sb.WriteString("- " + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
