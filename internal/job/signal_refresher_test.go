package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"trademate/internal/domain"
)

type stubProducer struct {
	mu      sync.Mutex
	calls   int
	signals []domain.Signal
}

func (s *stubProducer) Refresh(ctx context.Context) []domain.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.signals
}

func (s *stubProducer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPusher struct {
	mu     sync.Mutex
	pushed []domain.Signal
}

func (s *stubPusher) PushSignal(sig domain.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, sig)
}

func (s *stubPusher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushed)
}

func TestSignalRefresherPushesProducerOutput(t *testing.T) {
	t.Parallel()

	producer := &stubProducer{signals: []domain.Signal{
		{Symbol: "BTC", Source: domain.SourceTechnical, Score: 0.5, Confidence: 0.5, Timestamp: time.Now()},
		{Symbol: "ETH", Source: domain.SourceTechnical, Score: 0.1, Confidence: 0.4, Timestamp: time.Now()},
	}}
	pusher := &stubPusher{}

	refresher := NewSignalRefresher(testTracer, pusher)
	refresher.Add("technical", producer, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go refresher.Start(ctx)

	eventually(t, func() bool { return pusher.count() == 2 })
	cancel()
}

func TestSignalRefresherRunsEveryProducer(t *testing.T) {
	t.Parallel()

	first := &stubProducer{}
	second := &stubProducer{}
	pusher := &stubPusher{}

	refresher := NewSignalRefresher(testTracer, pusher)
	refresher.Add("technical", first, time.Hour, 0)
	refresher.Add("sentiment", second, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go refresher.Start(ctx)

	eventually(t, func() bool { return first.callCount() > 0 && second.callCount() > 0 })
	cancel()
}

func TestSignalRefresherKeepsTicking(t *testing.T) {
	t.Parallel()

	producer := &stubProducer{}
	refresher := NewSignalRefresher(testTracer, &stubPusher{})
	refresher.Add("policy", producer, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go refresher.Start(ctx)

	eventually(t, func() bool { return producer.callCount() >= 3 })
	cancel()
}
