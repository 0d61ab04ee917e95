package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trademate/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const priceCacheTTL = 90 * time.Second

// CandleTier selects which slice of history a refresh covers. The
// CoinGecko free tier returns ~5m granularity for 1-day windows and
// ~1h granularity for 30-day windows, so the intervals split that way.
type CandleTier struct {
	Name      string
	Days      int
	Intervals []string
}

var (
	ShortCandles = CandleTier{Name: "short", Days: 1, Intervals: []string{"5m", "15m", "1h"}}
	LongCandles  = CandleTier{Name: "long", Days: 30, Intervals: []string{"4h", "1d"}}
)

type PriceProvider interface {
	FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error)
	FetchMarketChart(ctx context.Context, symbol string, days int, intervals []string) ([]*domain.Candle, error)
}

type CandleRepository interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
	UpsertCandles(ctx context.Context, candles []*domain.Candle) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketDataService orchestrates price fetching, caching, and candle
// storage for the signal producers and the read APIs.
type MarketDataService struct {
	tracer   trace.Tracer
	provider PriceProvider
	repo     CandleRepository
	redis    RedisClient
}

func NewMarketDataService(
	tracer trace.Tracer,
	provider PriceProvider,
	repo CandleRepository,
	redisClient RedisClient,
) *MarketDataService {
	return &MarketDataService{
		tracer:   tracer,
		provider: provider,
		repo:     repo,
		redis:    redisClient,
	}
}

// GetCurrentPrice returns the latest cached price for a symbol, falling
// back to a live batched API call when the cache is empty or expired.
func (s *MarketDataService) GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	_, span := s.tracer.Start(ctx, "market-data.get-current-price")
	defer span.End()

	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getPriceCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	prices, err := s.provider.FetchPrices(ctx)
	if err != nil {
		return nil, err
	}
	s.cachePrices(ctx, prices)

	snap, ok := prices[symbol]
	if !ok {
		return nil, fmt.Errorf("price not available for %s", symbol)
	}
	return snap, nil
}

// GetCurrentPrices returns the latest prices for every supported symbol.
func (s *MarketDataService) GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error) {
	_, span := s.tracer.Start(ctx, "market-data.get-current-prices")
	defer span.End()

	var snapshots []*domain.PriceSnapshot
	var missing []string

	for _, symbol := range domain.SupportedSymbols {
		if s.redis != nil {
			cached, _ := s.getPriceCache(ctx, symbol)
			if cached != nil {
				snapshots = append(snapshots, cached)
				continue
			}
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		prices, err := s.provider.FetchPrices(ctx)
		if err != nil {
			return snapshots, err
		}
		s.cachePrices(ctx, prices)
		for _, symbol := range missing {
			if snap, ok := prices[symbol]; ok {
				snapshots = append(snapshots, snap)
			}
		}
	}

	return snapshots, nil
}

// GetCandles returns stored candles in chronological order.
func (s *MarketDataService) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	return s.repo.GetCandles(ctx, symbol, interval, limit)
}

// RefreshPrices fetches the latest prices and warms the cache.
func (s *MarketDataService) RefreshPrices(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "market-data.refresh-prices")
	defer span.End()

	prices, err := s.provider.FetchPrices(ctx)
	if err != nil {
		return err
	}
	s.cachePrices(ctx, prices)

	log.Printf("Refreshed prices for %d assets", len(prices))
	return nil
}

// RefreshCandles fetches one tier of market chart data and upserts the
// resulting candles.
func (s *MarketDataService) RefreshCandles(ctx context.Context, symbol string, tier CandleTier) error {
	_, span := s.tracer.Start(ctx, "market-data.refresh-candles")
	defer span.End()

	candles, err := s.provider.FetchMarketChart(ctx, symbol, tier.Days, tier.Intervals)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertCandles(ctx, candles); err != nil {
		return fmt.Errorf("upsert %s candles for %s: %w", tier.Name, symbol, err)
	}

	log.Printf("Refreshed %s candles for %s (%d candles)", tier.Name, symbol, len(candles))
	return nil
}

func (s *MarketDataService) cachePrices(ctx context.Context, prices map[string]*domain.PriceSnapshot) {
	if s.redis == nil {
		return
	}
	for _, snap := range prices {
		if err := s.setPriceCache(ctx, snap); err != nil {
			log.Printf("redis cache write error for %s: %v", snap.Symbol, err)
		}
	}
}

func (s *MarketDataService) setPriceCache(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "price:"+snapshot.Symbol, data, priceCacheTTL).Err()
}

func (s *MarketDataService) getPriceCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, "price:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
