package rl

import (
	"context"

	"trademate/internal/domain"
	"trademate/internal/technical"

	"go.opentelemetry.io/otel/trace"
)

// LabeledState is one training example: a state vector paired with the
// action that maximized reward over the lookahead horizon.
type LabeledState struct {
	State  []float64
	Action int
}

type DatasetOptions struct {
	Window        int     // candles folded into each state
	Horizon       int     // candles ahead the reward looks
	BuyThreshold  float64 // forward return at or above which the label is buy
	SellThreshold float64 // forward return at or below which the label is sell
}

func DefaultDatasetOptions() DatasetOptions {
	return DatasetOptions{
		Window:        48,
		Horizon:       4,
		BuyThreshold:  0.01,
		SellThreshold: -0.01,
	}
}

// DatasetBuilder turns stored candle history into labeled policy states.
// It replays the same indicator pipeline the live producer uses, so the
// trained model sees train-time and inference-time features built the
// same way.
type DatasetBuilder struct {
	analyzer *technical.Analyzer
}

func NewDatasetBuilder(tracer trace.Tracer) *DatasetBuilder {
	return &DatasetBuilder{analyzer: technical.NewAnalyzer(tracer)}
}

// Build slides a window over the candle history and labels each state
// with the action hindsight would have picked: buy when the forward
// return clears the buy threshold, sell when it clears the sell
// threshold, hold otherwise.
func (b *DatasetBuilder) Build(ctx context.Context, symbol string, candles []domain.Candle, opts DatasetOptions) []LabeledState {
	if opts.Window <= 0 || opts.Horizon <= 0 {
		opts = DefaultDatasetOptions()
	}
	if len(candles) < opts.Window+opts.Horizon {
		return nil
	}

	var out []LabeledState
	for i := opts.Window; i+opts.Horizon <= len(candles); i++ {
		window := candles[i-opts.Window : i]
		entry := window[len(window)-1].Close
		if entry <= 0 {
			continue
		}
		exit := candles[i+opts.Horizon-1].Close
		forward := (exit - entry) / entry

		action := int(domain.ActionHold)
		switch {
		case forward >= opts.BuyThreshold:
			action = int(domain.ActionBuy)
		case forward <= opts.SellThreshold:
			action = int(domain.ActionSell)
		}

		readings := b.analyzer.Analyze(ctx, symbol, window, windowSnapshot(symbol, window))
		out = append(out, LabeledState{
			State:  BuildState(StateInput{Readings: readings, Snapshot: windowSnapshot(symbol, window), Candles: window}),
			Action: action,
		})
	}
	return out
}

// windowSnapshot approximates the live price snapshot from the window
// itself, so trend and volume features are populated at train time the
// same way the provider populates them at inference time.
func windowSnapshot(symbol string, window []domain.Candle) *domain.PriceSnapshot {
	if len(window) < 2 {
		return nil
	}
	first := window[0]
	last := window[len(window)-1]
	if first.Close <= 0 {
		return nil
	}
	volume := 0.0
	for _, c := range window {
		volume += c.Volume
	}
	return &domain.PriceSnapshot{
		Symbol:          symbol,
		PriceUSD:        last.Close,
		Volume24h:       volume,
		Change24hPct:    (last.Close - first.Close) / first.Close * 100,
		LastUpdatedUnix: last.OpenTime.Unix(),
	}
}
