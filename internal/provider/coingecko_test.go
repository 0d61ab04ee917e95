package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestCoinGeckoFetchPrices(t *testing.T) {
	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"))
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		body := `{"bitcoin":{"usd":97000,"usd_24h_vol":45000000000,"usd_24h_change":2.34},"unlisted-coin":{"usd":1}}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})}

	prices, err := p.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, ok := prices["BTC"]
	if !ok {
		t.Fatalf("expected BTC snapshot, got %v", prices)
	}
	if snap.PriceUSD != 97000 || snap.Change24hPct != 2.34 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, ok := prices["unlisted-coin"]; ok {
		t.Fatal("unknown coingecko ids must be dropped")
	}
}

func TestBuildCandlesFromMarketChart(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	minute := int64(60_000)
	prices := [][]float64{
		{float64(base), 100},
		{float64(base + 2*minute), 105},
		{float64(base + 4*minute), 95},
		{float64(base + 6*minute), 102}, // second 5m bucket
	}
	volumes := [][]float64{
		{float64(base + 4*minute), 1234},
	}

	candles := buildCandlesFromMarketChart("BTC", "5m", prices, volumes)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 100 || first.High != 105 || first.Low != 95 || first.Close != 95 {
		t.Fatalf("unexpected OHLC: %+v", first)
	}
	if first.Volume != 1234 {
		t.Fatalf("expected closest volume assignment, got %v", first.Volume)
	}
	if first.Interval != "5m" || first.Symbol != "BTC" {
		t.Fatalf("unexpected identity: %+v", first)
	}
	if !candles[1].OpenTime.After(first.OpenTime) {
		t.Fatal("candles must be sorted by open time")
	}
}

func TestBuildCandlesUnknownInterval(t *testing.T) {
	if candles := buildCandlesFromMarketChart("BTC", "2h", [][]float64{{1, 2}}, nil); candles != nil {
		t.Fatalf("expected nil for unknown interval, got %v", candles)
	}
}

func TestFetchMarketChartRejectsUnknownSymbol(t *testing.T) {
	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"))
	if _, err := p.FetchMarketChart(context.Background(), "NOPE", 1, []string{"5m"}); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}
