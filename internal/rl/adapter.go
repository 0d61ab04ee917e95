package rl

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
	"trademate/internal/rl/qnet"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// actionScore maps each discrete action onto the common directional
// scale.
var actionScore = map[domain.PolicyAction]float64{
	domain.ActionBuy:  1,
	domain.ActionSell: -1,
	domain.ActionHold: 0,
}

// Adapter turns raw policy inferences into Signals. The model is
// swappable at runtime so a registry reload never interrupts the
// producer loop.
type Adapter struct {
	tracer trace.Tracer

	mu    sync.RWMutex
	model *qnet.Model
}

func NewAdapter(tracer trace.Tracer, model *qnet.Model) *Adapter {
	return &Adapter{tracer: tracer, model: model}
}

// SetModel swaps the active model; a nil model silences the producer.
func (a *Adapter) SetModel(m *qnet.Model) {
	a.mu.Lock()
	a.model = m
	a.mu.Unlock()
}

func (a *Adapter) activeModel() *qnet.Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Infer runs one forward pass and picks the argmax action.
func (a *Adapter) Infer(ctx context.Context, state []float64, now time.Time) domain.PolicyOutput {
	_, span := a.tracer.Start(ctx, "policy.infer")
	defer span.End()

	values := a.activeModel().ActionValues(state)
	action := domain.ActionHold
	best := math.Inf(-1)
	for i, v := range values {
		if v > best {
			best = v
			action = domain.PolicyAction(i)
		}
	}
	span.SetAttributes(attribute.String("action", action.String()))

	return domain.PolicyOutput{
		Action:       action,
		ActionValues: values,
		Timestamp:    now,
	}
}

// Signal converts an inference into the fusion engine's currency.
// The discrete action sets the direction; when the model also emits a
// continuous recommendation it overrides the discrete mapping through a
// saturating tanh. Confidence is the margin between the best and
// second-best action values, so a coin-flip inference carries no weight.
func (a *Adapter) Signal(ctx context.Context, symbol string, state []float64, now time.Time) *domain.Signal {
	if a.activeModel() == nil {
		return nil
	}
	out := a.Infer(ctx, state, now)

	score := actionScore[out.Action]
	if out.Continuous != nil {
		score = math.Tanh(*out.Continuous)
	}

	confidence := fusion.Clamp(margin(out.ActionValues), 0, 1)

	rationale := []string{
		fmt.Sprintf("action=%s", out.Action),
		fmt.Sprintf("q(buy)=%.3f q(sell)=%.3f q(hold)=%.3f",
			out.ActionValues[domain.ActionBuy],
			out.ActionValues[domain.ActionSell],
			out.ActionValues[domain.ActionHold]),
	}

	return &domain.Signal{
		Symbol:     symbol,
		Source:     domain.SourcePolicy,
		Score:      fusion.Clamp(score, -1, 1),
		Confidence: confidence,
		Timestamp:  now,
		Rationale:  rationale,
	}
}

// margin is best minus second-best action value.
func margin(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	best, second := math.Inf(-1), math.Inf(-1)
	for _, v := range values {
		if v > best {
			second = best
			best = v
		} else if v > second {
			second = v
		}
	}
	return best - second
}
