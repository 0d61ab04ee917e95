package technical

import (
	"context"
	"fmt"
	"math"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	"github.com/markcheno/go-talib"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reading is one indicator observation, already mapped onto the common
// [-1,1] directional scale. Raw keeps the indicator's native value for
// the rationale line.
type Reading struct {
	Name  string
	Score float64
	Raw   float64
	Note  string
}

const (
	rsiPeriod  = 14
	bbPeriod   = 20
	bbDev      = 2.0
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// MACD has the longest warmup of the set
	minCandles = macdSlow + macdSignal
)

// Analyzer extracts indicator readings from a candle series. Indicators
// that cannot be computed from the data at hand are simply omitted; the
// normalizer folds the resulting coverage into the signal confidence.
type Analyzer struct {
	tracer trace.Tracer
}

func NewAnalyzer(tracer trace.Tracer) *Analyzer {
	return &Analyzer{tracer: tracer}
}

func (a *Analyzer) Analyze(ctx context.Context, symbol string, candles []domain.Candle, snap *domain.PriceSnapshot) []Reading {
	_, span := a.tracer.Start(ctx, "technical.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.Int("candles", len(candles)),
	)

	readings := make([]Reading, 0, 5)

	if len(candles) >= minCandles {
		closes := make([]float64, len(candles))
		volumes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
			volumes[i] = c.Volume
		}
		if r, ok := rsiReading(closes); ok {
			readings = append(readings, r)
		}
		if r, ok := macdReading(closes); ok {
			readings = append(readings, r)
		}
		if r, ok := bollingerReading(closes); ok {
			readings = append(readings, r)
		}
		if r, ok := volumeReading(closes, volumes); ok {
			readings = append(readings, r)
		}
	}
	if snap != nil {
		readings = append(readings, momentumReading(snap.Change24hPct))
	}

	span.SetAttributes(attribute.Int("readings", len(readings)))
	return readings
}

// rsiReading maps RSI onto a mean-reversion score: oversold reads
// bullish, overbought bearish. 50 is neutral, the extremes saturate.
func rsiReading(closes []float64) (Reading, bool) {
	rsi := talib.Rsi(closes, rsiPeriod)
	last := rsi[len(rsi)-1]
	if last <= 0 || math.IsNaN(last) {
		return Reading{}, false
	}
	score := fusion.Clamp((50-last)/50, -1, 1)
	note := "neutral"
	switch {
	case last <= 30:
		note = "oversold"
	case last >= 70:
		note = "overbought"
	}
	return Reading{
		Name:  "rsi",
		Score: score,
		Raw:   last,
		Note:  fmt.Sprintf("rsi %.1f (%s)", last, note),
	}, true
}

// macdReading scores the histogram relative to price so the reading is
// comparable across assets; a histogram worth 1% of price saturates.
func macdReading(closes []float64) (Reading, bool) {
	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	last := hist[len(hist)-1]
	price := closes[len(closes)-1]
	if price <= 0 || math.IsNaN(last) {
		return Reading{}, false
	}
	score := fusion.Clamp(last/(0.01*price), -1, 1)
	direction := "bullish"
	if last < 0 {
		direction = "bearish"
	}
	return Reading{
		Name:  "macd",
		Score: score,
		Raw:   last,
		Note:  fmt.Sprintf("macd histogram %.4f (%s)", last, direction),
	}, true
}

// bollingerReading uses %B as a mean-reversion score: a close below the
// lower band reads bullish, above the upper band bearish.
func bollingerReading(closes []float64) (Reading, bool) {
	upper, _, lower := talib.BBands(closes, bbPeriod, bbDev, bbDev, talib.SMA)
	u, l := upper[len(upper)-1], lower[len(lower)-1]
	width := u - l
	if width <= 0 || math.IsNaN(width) {
		return Reading{}, false
	}
	pctB := (closes[len(closes)-1] - l) / width
	score := fusion.Clamp(1-2*pctB, -1, 1)
	return Reading{
		Name:  "bollinger",
		Score: score,
		Raw:   pctB,
		Note:  fmt.Sprintf("%%B %.2f", pctB),
	}, true
}

// volumeReading scores an unusual volume spike in the direction of the
// latest close-to-close move; three standard deviations saturate.
func volumeReading(closes, volumes []float64) (Reading, bool) {
	if len(volumes) < 2 {
		return Reading{}, false
	}
	m := mean(volumes)
	sd := stddev(volumes, m)
	if sd <= 0 {
		return Reading{}, false
	}
	z := (volumes[len(volumes)-1] - m) / sd
	direction := 0.0
	if closes[len(closes)-1] > closes[len(closes)-2] {
		direction = 1
	} else if closes[len(closes)-1] < closes[len(closes)-2] {
		direction = -1
	}
	score := fusion.Clamp(direction*z/3, -1, 1)
	return Reading{
		Name:  "volume",
		Score: score,
		Raw:   z,
		Note:  fmt.Sprintf("volume z-score %.2f", z),
	}, true
}

// momentumReading scores the 24h change; a 10% move saturates.
func momentumReading(change24hPct float64) Reading {
	return Reading{
		Name:  "momentum",
		Score: fusion.Clamp(change24hPct/10, -1, 1),
		Raw:   change24hPct,
		Note:  fmt.Sprintf("24h change %+.2f%%", change24hPct),
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
