package service

import (
	"context"
	"log"
	"time"

	"trademate/internal/domain"
	"trademate/internal/technical"

	"go.opentelemetry.io/otel/trace"
)

// MarketDataReader is the slice of market data the signal producers need.
type MarketDataReader interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
}

// TechnicalSignalService produces one technical Signal per symbol from
// the stored candle history and the live price snapshot.
type TechnicalSignalService struct {
	tracer     trace.Tracer
	market     MarketDataReader
	analyzer   *technical.Analyzer
	normalizer *technical.Normalizer
	interval   string
	window     int
	nowFunc    func() time.Time
}

func NewTechnicalSignalService(tracer trace.Tracer, market MarketDataReader) *TechnicalSignalService {
	return &TechnicalSignalService{
		tracer:     tracer,
		market:     market,
		analyzer:   technical.NewAnalyzer(tracer),
		normalizer: technical.NewNormalizer(),
		interval:   "5m",
		window:     120,
		nowFunc:    time.Now,
	}
}

// Refresh recomputes the technical signal for every supported symbol.
// Symbols with no computable reading are skipped; they will show up as
// excluded sources on the next decision request.
func (s *TechnicalSignalService) Refresh(ctx context.Context) []domain.Signal {
	ctx, span := s.tracer.Start(ctx, "technical-signal.refresh")
	defer span.End()

	now := s.nowFunc().UTC()
	signals := make([]domain.Signal, 0, len(domain.SupportedSymbols))
	for _, symbol := range domain.SupportedSymbols {
		candles, err := s.market.GetCandles(ctx, symbol, s.interval, s.window)
		if err != nil {
			log.Printf("technical signal: candle read error for %s: %v", symbol, err)
			continue
		}
		snap, err := s.market.GetCurrentPrice(ctx, symbol)
		if err != nil {
			log.Printf("technical signal: price read error for %s: %v", symbol, err)
			snap = nil
		}

		readings := s.analyzer.Analyze(ctx, symbol, derefCandles(candles), snap)
		sig := s.normalizer.Normalize(symbol, readings, now)
		if sig == nil {
			continue
		}
		signals = append(signals, *sig)
	}
	return signals
}

// AnalyzeSymbol exposes the raw indicator readings for one symbol, used
// by the policy producer to build its state vector.
func (s *TechnicalSignalService) AnalyzeSymbol(ctx context.Context, symbol string) ([]technical.Reading, []*domain.Candle, *domain.PriceSnapshot) {
	candles, err := s.market.GetCandles(ctx, symbol, s.interval, s.window)
	if err != nil {
		log.Printf("technical signal: candle read error for %s: %v", symbol, err)
	}
	snap, err := s.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		snap = nil
	}
	return s.analyzer.Analyze(ctx, symbol, derefCandles(candles), snap), candles, snap
}

func derefCandles(in []*domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
