package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"trademate/internal/domain"
	"trademate/internal/provider"
	"trademate/internal/sentiment"
)

type fakeFearGreed struct {
	point *provider.FearGreedPoint
	err   error
}

func (f *fakeFearGreed) FetchLatest(ctx context.Context) (*provider.FearGreedPoint, error) {
	return f.point, f.err
}

type fakeReddit struct {
	items []sentiment.Item
	err   error
}

func (f *fakeReddit) FetchHot(ctx context.Context, subreddit string, limit int) ([]sentiment.Item, error) {
	return f.items, f.err
}

type fakeRSS struct {
	items []sentiment.Item
	err   error
}

func (f *fakeRSS) FetchFeed(ctx context.Context, feedURL string, maxItems int) ([]sentiment.Item, error) {
	return f.items, f.err
}

func newSentimentService(fg FearGreedSource, reddit RedditSource, rss RSSSource) *SentimentSignalService {
	svc := NewSentimentSignalService(
		testTracer,
		fg, reddit, rss,
		sentiment.NewScorer(nil, 0),
		sentiment.NewAggregator(testTracer, sentiment.DefaultMaxReadingAge, nil),
		[]string{"CryptoCurrency"},
		[]string{"https://example.com/feed.xml"},
	)
	svc.nowFunc = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSentimentRefreshFansFearGreedToAllSymbols(t *testing.T) {
	fg := &fakeFearGreed{point: &provider.FearGreedPoint{Value: 80, Classification: "Extreme Greed", Timestamp: time.Date(2025, 6, 1, 11, 50, 0, 0, time.UTC)}}
	svc := newSentimentService(fg, &fakeReddit{}, &fakeRSS{})

	signals := svc.Refresh(context.Background())
	if len(signals) != len(domain.SupportedSymbols) {
		t.Fatalf("expected a signal per symbol, got %d", len(signals))
	}
	for _, sig := range signals {
		if sig.Source != domain.SourceSentiment {
			t.Fatalf("unexpected source: %s", sig.Source)
		}
		if sig.Score <= 0 {
			t.Fatalf("greed index 80 should read bullish, got %.2f for %s", sig.Score, sig.Symbol)
		}
	}
}

func TestSentimentRefreshScoresTextItems(t *testing.T) {
	published := time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC)
	reddit := &fakeReddit{items: []sentiment.Item{
		{ID: 1, SourceID: "reddit", Title: "BTC breakout rally, new all-time high", PublishedAt: published},
	}}
	svc := newSentimentService(&fakeFearGreed{err: errors.New("api down")}, reddit, &fakeRSS{})

	signals := svc.Refresh(context.Background())
	if len(signals) != 1 {
		t.Fatalf("expected only a BTC signal, got %d", len(signals))
	}
	if signals[0].Symbol != "BTC" {
		t.Fatalf("expected BTC, got %s", signals[0].Symbol)
	}
	if signals[0].Score <= 0 {
		t.Fatalf("bullish headline should score positive, got %.2f", signals[0].Score)
	}
}

func TestSentimentRefreshSurvivesFailingSources(t *testing.T) {
	fg := &fakeFearGreed{point: &provider.FearGreedPoint{Value: 20, Classification: "Extreme Fear", Timestamp: time.Date(2025, 6, 1, 11, 55, 0, 0, time.UTC)}}
	svc := newSentimentService(fg, &fakeReddit{err: errors.New("rate limited")}, &fakeRSS{err: errors.New("timeout")})

	signals := svc.Refresh(context.Background())
	if len(signals) != len(domain.SupportedSymbols) {
		t.Fatalf("fear & greed alone should still aggregate, got %d signals", len(signals))
	}
	for _, sig := range signals {
		if sig.Score >= 0 {
			t.Fatalf("fear index 20 should read bearish, got %.2f for %s", sig.Score, sig.Symbol)
		}
	}
}

func TestSentimentRefreshDropsStaleItems(t *testing.T) {
	stale := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	reddit := &fakeReddit{items: []sentiment.Item{
		{ID: 2, SourceID: "reddit", Title: "ETH crash and liquidation cascade", PublishedAt: stale},
	}}
	svc := newSentimentService(&fakeFearGreed{err: errors.New("api down")}, reddit, &fakeRSS{})

	if signals := svc.Refresh(context.Background()); len(signals) != 0 {
		t.Fatalf("three-hour-old post must be dropped, got %d signals", len(signals))
	}
}
