package fusion

import (
	"context"
	"fmt"
	"time"

	"trademate/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine combines the latest technical, sentiment, and policy signals
// into one scored recommendation. A decision request walks four phases:
// collecting (read the snapshot, exclude empty/stale slots), weighting
// (base weight x confidence x freshness), resolving (weighted mean,
// agreement, disagreement penalty), done (emit the FusedDecision).
//
// Given an identical snapshot and policy the engine is a pure function:
// no hidden state, no randomness.
type Engine struct {
	tracer  trace.Tracer
	store   *SnapshotStore
	policy  WeightingPolicy
	emitter *Emitter
	nowFunc func() time.Time
}

func NewEngine(tracer trace.Tracer, store *SnapshotStore, policy WeightingPolicy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = NewSnapshotStore()
	}
	return &Engine{
		tracer:  tracer,
		store:   store,
		policy:  policy,
		emitter: NewEmitter(policy.Thresholds),
		nowFunc: time.Now,
	}, nil
}

// Store exposes the snapshot store so producers can push into it.
func (e *Engine) Store() *SnapshotStore { return e.store }

// PushSignal installs a producer's fresh Signal, last-write-wins per slot.
func (e *Engine) PushSignal(sig domain.Signal) { e.store.Push(sig) }

// RequestDecision computes a FusedDecision from already-materialized
// state. It never blocks on a producer; it returns an
// *InsufficientSignalError when no usable source remains.
func (e *Engine) RequestDecision(ctx context.Context, symbol string) (*domain.FusedDecision, error) {
	_, span := e.tracer.Start(ctx, "fusion.request-decision")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	return e.DecideAt(symbol, e.nowFunc())
}

// DecideAt is RequestDecision with an explicit clock, the seam used for
// reproducible backtesting.
func (e *Engine) DecideAt(symbol string, now time.Time) (*domain.FusedDecision, error) {
	snapshot := e.store.Snapshot(symbol)

	// collecting: drop empty and stale slots
	var excluded []string
	included := make([]domain.Signal, 0, len(domain.Sources))
	ages := make(map[domain.SignalSource]time.Duration, len(domain.Sources))
	for _, source := range domain.Sources {
		sig, ok := snapshot[source]
		if !ok {
			excluded = append(excluded, fmt.Sprintf("%s: no signal yet", source))
			continue
		}
		age := sig.Age(now)
		if age < 0 {
			age = 0
		}
		if age > e.policy.MaxAge[source] {
			excluded = append(excluded, fmt.Sprintf("%s: stale (age=%s max=%s)", source, age.Round(time.Second), e.policy.MaxAge[source]))
			continue
		}
		ages[source] = age
		included = append(included, sig)
	}

	// weighting: effective weight = base x confidence x freshness
	contributing := make([]domain.WeightedSignal, 0, len(included))
	totalWeight := 0.0
	for _, sig := range included {
		freshness := e.policy.Freshness(sig.Source, ages[sig.Source])
		weight := e.policy.BaseWeights[sig.Source] * sig.Confidence * freshness
		if weight <= 0 {
			excluded = append(excluded, fmt.Sprintf("%s: zero effective weight", sig.Source))
			continue
		}
		contributing = append(contributing, domain.WeightedSignal{
			Signal:          sig,
			EffectiveWeight: weight,
			Freshness:       freshness,
		})
		totalWeight += weight
	}
	if len(contributing) == 0 {
		return nil, &InsufficientSignalError{Symbol: symbol, Excluded: excluded}
	}

	// resolving: weighted mean, agreement, disagreement penalty
	fusedScore := 0.0
	confidence := 0.0
	maxShare := 0.0
	for i := range contributing {
		ws := &contributing[i]
		ws.WeightShare = ws.EffectiveWeight / totalWeight
		fusedScore += ws.WeightShare * ws.Signal.Score
		confidence += ws.WeightShare * ws.Signal.Confidence
		if ws.WeightShare > maxShare {
			maxShare = ws.WeightShare
		}
	}
	fusedScore = Clamp(fusedScore, -1, 1)
	confidence = Clamp(confidence, 0, 1)

	agreement := true
	for _, ws := range contributing {
		if ws.Signal.Score == 0 {
			continue // neutral, never breaks agreement
		}
		if !sameSign(ws.Signal.Score, fusedScore) {
			agreement = false
			break
		}
	}

	tier := e.emitter.Tier(confidence)
	downgraded := false
	if !agreement && maxShare <= e.policy.DominanceThreshold {
		// surface the uncertainty instead of silently picking a winner
		tier = tier.Downgrade()
		downgraded = true
	}

	// done
	return &domain.FusedDecision{
		Symbol:              symbol,
		Recommendation:      e.emitter.Recommend(fusedScore),
		FusedScore:          fusedScore,
		Confidence:          confidence,
		ConfidenceTier:      tier,
		Agreement:           agreement,
		ContributingSignals: contributing,
		ExcludedSources:     excluded,
		Rationale:           e.emitter.BuildRationale(contributing, excluded, agreement, downgraded),
		GeneratedAt:         now.UTC(),
	}, nil
}

func sameSign(a, b float64) bool {
	if a > 0 {
		return b > 0
	}
	if a < 0 {
		return b < 0
	}
	return b == 0
}
