package job

import (
	"context"
	"log"
	"time"

	"trademate/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// SignalPusher accepts fresh producer signals, last-write-wins per
// (symbol, source) slot.
type SignalPusher interface {
	PushSignal(sig domain.Signal)
}

// SignalProducer recomputes one source's signals for every symbol.
type SignalProducer interface {
	Refresh(ctx context.Context) []domain.Signal
}

type producerLoop struct {
	name     string
	producer SignalProducer
	interval time.Duration
	stagger  time.Duration
}

// SignalRefresher drives the technical, sentiment, and policy producers
// on independent cadences, pushing whatever they emit into the fusion
// snapshot store. A slow or failing producer only ages its own slot;
// the other sources keep refreshing.
type SignalRefresher struct {
	tracer trace.Tracer
	pusher SignalPusher
	loops  []producerLoop
}

func NewSignalRefresher(tracer trace.Tracer, pusher SignalPusher) *SignalRefresher {
	return &SignalRefresher{tracer: tracer, pusher: pusher}
}

// Add registers a producer loop. Staggers offset the first run so the
// producers do not hit shared upstreams at the same instant.
func (r *SignalRefresher) Add(name string, producer SignalProducer, interval, stagger time.Duration) {
	r.loops = append(r.loops, producerLoop{
		name:     name,
		producer: producer,
		interval: interval,
		stagger:  stagger,
	})
}

// Start launches one goroutine per producer and blocks until ctx is
// cancelled.
func (r *SignalRefresher) Start(ctx context.Context) {
	log.Printf("Signal refresher starting (%d producers)...", len(r.loops))

	for _, loop := range r.loops {
		loop := loop
		go pollLoop(ctx, loop.name, loop.interval, loop.stagger, func(ctx context.Context) error {
			r.runOnce(ctx, loop)
			return nil
		})
	}

	<-ctx.Done()
	log.Println("Signal refresher stopped")
}

func (r *SignalRefresher) runOnce(ctx context.Context, loop producerLoop) {
	ctx, span := r.tracer.Start(ctx, "signal-refresher."+loop.name)
	defer span.End()

	signals := loop.producer.Refresh(ctx)
	for _, sig := range signals {
		r.pusher.PushSignal(sig)
	}
	if len(signals) > 0 {
		log.Printf("Refreshed %d %s signals", len(signals), loop.name)
	}
}
