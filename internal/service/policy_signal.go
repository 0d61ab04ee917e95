package service

import (
	"context"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
	"trademate/internal/rl"

	"go.opentelemetry.io/otel/trace"
)

// PolicySignalService runs the trading policy over the current market
// state and emits one policy Signal per symbol. It reads the latest
// sentiment slot so the policy sees the same inputs the fusion engine
// will weigh against it.
type PolicySignalService struct {
	tracer    trace.Tracer
	technical *TechnicalSignalService
	adapter   *rl.Adapter
	store     *fusion.SnapshotStore
	nowFunc   func() time.Time
}

func NewPolicySignalService(
	tracer trace.Tracer,
	technical *TechnicalSignalService,
	adapter *rl.Adapter,
	store *fusion.SnapshotStore,
) *PolicySignalService {
	return &PolicySignalService{
		tracer:    tracer,
		technical: technical,
		adapter:   adapter,
		store:     store,
		nowFunc:   time.Now,
	}
}

func (s *PolicySignalService) Refresh(ctx context.Context) []domain.Signal {
	ctx, span := s.tracer.Start(ctx, "policy-signal.refresh")
	defer span.End()

	now := s.nowFunc().UTC()
	signals := make([]domain.Signal, 0, len(domain.SupportedSymbols))
	for _, symbol := range domain.SupportedSymbols {
		readings, candles, snap := s.technical.AnalyzeSymbol(ctx, symbol)

		var sentSig *domain.Signal
		if latest, ok := s.store.Latest(symbol, domain.SourceSentiment); ok {
			sentSig = &latest
		}

		state := rl.BuildState(rl.StateInput{
			Readings:  readings,
			Snapshot:  snap,
			Sentiment: sentSig,
			Candles:   derefCandles(candles),
		})
		sig := s.adapter.Signal(ctx, symbol, state, now)
		if sig == nil {
			continue
		}
		signals = append(signals, *sig)
	}
	return signals
}
