package service

import (
	"context"
	"log"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
	"trademate/internal/provider"
	"trademate/internal/sentiment"

	"go.opentelemetry.io/otel/trace"
)

type FearGreedSource interface {
	FetchLatest(ctx context.Context) (*provider.FearGreedPoint, error)
}

type RedditSource interface {
	FetchHot(ctx context.Context, subreddit string, limit int) ([]sentiment.Item, error)
}

type RSSSource interface {
	FetchFeed(ctx context.Context, feedURL string, maxItems int) ([]sentiment.Item, error)
}

// SentimentSignalService pulls text and index sources, scores them, and
// aggregates per-symbol sentiment Signals.
type SentimentSignalService struct {
	tracer     trace.Tracer
	fearGreed  FearGreedSource
	reddit     RedditSource
	rss        RSSSource
	scorer     *sentiment.Scorer
	aggregator *sentiment.Aggregator
	subreddits []string
	feeds      []string
	nowFunc    func() time.Time
}

func NewSentimentSignalService(
	tracer trace.Tracer,
	fearGreed FearGreedSource,
	reddit RedditSource,
	rss RSSSource,
	scorer *sentiment.Scorer,
	aggregator *sentiment.Aggregator,
	subreddits []string,
	feeds []string,
) *SentimentSignalService {
	return &SentimentSignalService{
		tracer:     tracer,
		fearGreed:  fearGreed,
		reddit:     reddit,
		rss:        rss,
		scorer:     scorer,
		aggregator: aggregator,
		subreddits: subreddits,
		feeds:      feeds,
		nowFunc:    time.Now,
	}
}

// Refresh fetches every configured source once and aggregates one
// sentiment Signal per symbol the content mentions. A failing source is
// logged and skipped; the aggregate is built from whatever remains.
func (s *SentimentSignalService) Refresh(ctx context.Context) []domain.Signal {
	ctx, span := s.tracer.Start(ctx, "sentiment-signal.refresh")
	defer span.End()

	now := s.nowFunc().UTC()
	readingsBySymbol := make(map[string][]domain.SentimentReading)

	if s.fearGreed != nil {
		point, err := s.fearGreed.FetchLatest(ctx)
		if err != nil {
			log.Printf("sentiment signal: fear & greed fetch error: %v", err)
		} else {
			reading := point.Reading()
			for _, symbol := range domain.SupportedSymbols {
				readingsBySymbol[symbol] = append(readingsBySymbol[symbol], reading)
			}
		}
	}

	items := s.collectItems(ctx)
	if len(items) > 0 {
		byID := make(map[int64]sentiment.Item, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		for _, scored := range s.scorer.Score(ctx, items) {
			item := byID[scored.ItemID]
			reading := domain.SentimentReading{
				SourceID:   item.SourceID,
				Score:      fusion.Clamp(scored.Score, -1, 1),
				Confidence: fusion.Clamp(scored.Confidence, 0, 1),
				Timestamp:  item.PublishedAt,
			}
			for _, symbol := range sentiment.ExtractSymbols(item) {
				readingsBySymbol[symbol] = append(readingsBySymbol[symbol], reading)
			}
		}
	}

	signals := make([]domain.Signal, 0, len(readingsBySymbol))
	for symbol, readings := range readingsBySymbol {
		if sig := s.aggregator.Aggregate(ctx, symbol, readings, now); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

func (s *SentimentSignalService) collectItems(ctx context.Context) []sentiment.Item {
	var items []sentiment.Item
	if s.reddit != nil {
		for _, subreddit := range s.subreddits {
			fetched, err := s.reddit.FetchHot(ctx, subreddit, 25)
			if err != nil {
				log.Printf("sentiment signal: reddit fetch error for r/%s: %v", subreddit, err)
				continue
			}
			items = append(items, fetched...)
		}
	}
	if s.rss != nil {
		for _, feed := range s.feeds {
			fetched, err := s.rss.FetchFeed(ctx, feed, 40)
			if err != nil {
				log.Printf("sentiment signal: rss fetch error for %s: %v", feed, err)
				continue
			}
			items = append(items, fetched...)
		}
	}
	return items
}
