package sentiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxReadingAge bounds how old a per-source reading may be before
// the aggregator ignores it.
const DefaultMaxReadingAge = 45 * time.Minute

// Aggregator folds per-source sentiment readings into one sentiment
// Signal. Each reading is weighted by its source's base weight, its own
// confidence, and a linear freshness decay; readings older than maxAge
// are dropped entirely.
type Aggregator struct {
	tracer        trace.Tracer
	maxAge        time.Duration
	sourceWeights map[string]float64
}

func NewAggregator(tracer trace.Tracer, maxAge time.Duration, sourceWeights map[string]float64) *Aggregator {
	if maxAge <= 0 {
		maxAge = DefaultMaxReadingAge
	}
	return &Aggregator{tracer: tracer, maxAge: maxAge, sourceWeights: sourceWeights}
}

func (a *Aggregator) sourceWeight(sourceID string) float64 {
	if w, ok := a.sourceWeights[sourceID]; ok && w > 0 {
		return w
	}
	return 1
}

// Aggregate returns nil when no reading survives the age filter; the
// sentiment producer then simply emits nothing this cycle.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string, readings []domain.SentimentReading, now time.Time) *domain.Signal {
	_, span := a.tracer.Start(ctx, "sentiment.aggregate")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.Int("readings", len(readings)),
	)

	type weighted struct {
		reading domain.SentimentReading
		weight  float64
	}
	kept := make([]weighted, 0, len(readings))
	totalWeight := 0.0
	for _, r := range readings {
		age := now.Sub(r.Timestamp)
		if age < 0 {
			age = 0
		}
		if age > a.maxAge {
			continue
		}
		freshness := 1 - float64(age)/float64(a.maxAge)
		w := a.sourceWeight(r.SourceID) * fusion.Clamp(r.Confidence, 0, 1) * freshness
		if w <= 0 {
			continue
		}
		kept = append(kept, weighted{reading: r, weight: w})
		totalWeight += w
	}
	if len(kept) == 0 || totalWeight == 0 {
		return nil
	}

	score := 0.0
	confidence := 0.0
	rationale := make([]string, 0, len(kept))
	for _, k := range kept {
		share := k.weight / totalWeight
		score += share * fusion.Clamp(k.reading.Score, -1, 1)
		confidence += share * fusion.Clamp(k.reading.Confidence, 0, 1)
		rationale = append(rationale, fmt.Sprintf(
			"%s: score=%+.2f confidence=%.2f weight=%.0f%% age=%s",
			k.reading.SourceID, k.reading.Score, k.reading.Confidence,
			share*100, now.Sub(k.reading.Timestamp).Round(time.Minute),
		))
	}

	// penalize spread between sources; scores live in [-1,1] so a
	// standard deviation of 1 means the sources point everywhere at once
	variance := 0.0
	for _, k := range kept {
		d := fusion.Clamp(k.reading.Score, -1, 1) - score
		variance += (k.weight / totalWeight) * d * d
	}
	confidence *= 1 - math.Min(math.Sqrt(variance), 1)

	return &domain.Signal{
		Symbol:     symbol,
		Source:     domain.SourceSentiment,
		Score:      fusion.Clamp(score, -1, 1),
		Confidence: fusion.Clamp(confidence, 0, 1),
		Timestamp:  now,
		Rationale:  rationale,
	}
}
