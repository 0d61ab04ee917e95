package job

import (
	"context"
	"log"
	"time"

	"trademate/internal/domain"
	"trademate/internal/service"

	"go.opentelemetry.io/otel/trace"
)

// PricePoller keeps the price cache and candle store warm so the signal
// producers always compute over recent data.
type PricePoller struct {
	tracer       trace.Tracer
	market       MarketDataRefresher
	pollInterval time.Duration
}

type MarketDataRefresher interface {
	RefreshPrices(ctx context.Context) error
	RefreshCandles(ctx context.Context, symbol string, tier service.CandleTier) error
}

func NewPricePoller(tracer trace.Tracer, market MarketDataRefresher, pollIntervalSecs int) *PricePoller {
	return &PricePoller{
		tracer:       tracer,
		market:       market,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start launches the polling goroutines and blocks until ctx is cancelled.
func (p *PricePoller) Start(ctx context.Context) {
	log.Println("Price poller starting...")

	// Tier 1: current prices every pollInterval (default 60s)
	go pollLoop(ctx, "current-prices", p.pollInterval, 0, func(ctx context.Context) error {
		return p.market.RefreshPrices(ctx)
	})

	// Tier 2: short candles, two coins every 5 minutes, round-robin
	go p.pollCandles(ctx, service.ShortCandles, 10*time.Second, 5*time.Minute, 2)

	// Tier 3: long candles, one coin every 30 minutes, round-robin
	go p.pollCandles(ctx, service.LongCandles, 30*time.Second, 30*time.Minute, 1)

	<-ctx.Done()
	log.Println("Price poller stopped")
}

// pollCandles rotates through the supported symbols refreshing
// coinsPerTick of them per tick, staggered so the CoinGecko rate limit
// is shared fairly with the price loop.
func (p *PricePoller) pollCandles(ctx context.Context, tier service.CandleTier, delay, interval time.Duration, coinsPerTick int) {
	coinIndex := 0
	pollLoop(ctx, tier.Name+"-candles", interval, delay, func(ctx context.Context) error {
		symbols := domain.SupportedSymbols
		for i := 0; i < coinsPerTick; i++ {
			symbol := symbols[coinIndex%len(symbols)]
			coinIndex++
			if err := p.market.RefreshCandles(ctx, symbol, tier); err != nil {
				log.Printf("%s candle refresh error for %s: %v", tier.Name, symbol, err)
			}
		}
		return nil
	})
}

// pollLoop runs fn immediately (after an optional stagger delay), then
// on every tick until ctx is cancelled.
func pollLoop(ctx context.Context, name string, interval, delay time.Duration, fn func(context.Context) error) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	if err := fn(ctx); err != nil {
		log.Printf("poller %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("poller %s error: %v", name, err)
			}
		}
	}
}
