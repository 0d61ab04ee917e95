package main

import (
	"testing"
	"time"

	"trademate/internal/domain"
)

func TestDerefCandlesDropsNils(t *testing.T) {
	in := []*domain.Candle{
		{Symbol: "BTC", Close: 1, OpenTime: time.Unix(0, 0)},
		nil,
		{Symbol: "BTC", Close: 2, OpenTime: time.Unix(60, 0)},
	}
	out := derefCandles(in)
	if len(out) != 2 || out[0].Close != 1 || out[1].Close != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestEnvDays(t *testing.T) {
	t.Setenv("TRAIN_WINDOW_DAYS", "")
	if got := envDays("TRAIN_WINDOW_DAYS", 90); got != 90 {
		t.Fatalf("expected default 90, got %d", got)
	}
	t.Setenv("TRAIN_WINDOW_DAYS", "30")
	if got := envDays("TRAIN_WINDOW_DAYS", 90); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	t.Setenv("TRAIN_WINDOW_DAYS", "-5")
	if got := envDays("TRAIN_WINDOW_DAYS", 90); got != 90 {
		t.Fatalf("negative value should fall back to default, got %d", got)
	}
}
