package rl

import (
	"math"

	"trademate/internal/domain"
	"trademate/internal/fusion"
	"trademate/internal/technical"
)

// StateSpecVersion tags persisted model artifacts with the state vector
// layout they were trained against.
const StateSpecVersion = "state:v1"

// StateFeatureNames is the fixed layout of the policy state vector.
var StateFeatureNames = []string{
	"rsi_norm",
	"macd_score",
	"volume_busd",
	"change_24h",
	"trend",
	"sent_score",
	"sent_confidence",
	"volatility",
	"volume_z",
	"coverage",
}

// StateInput carries everything the state builder folds into a vector.
// Any field may be missing; absent inputs fall back to neutral values
// so the vector layout never changes.
type StateInput struct {
	Readings  []technical.Reading
	Snapshot  *domain.PriceSnapshot
	Sentiment *domain.Signal
	Candles   []domain.Candle
}

// BuildState maps the current market view onto the fixed feature
// vector the policy network was trained on.
func BuildState(in StateInput) []float64 {
	byName := make(map[string]technical.Reading, len(in.Readings))
	for _, r := range in.Readings {
		byName[r.Name] = r
	}

	rsiNorm := 0.5
	if r, ok := byName["rsi"]; ok {
		rsiNorm = fusion.Clamp(r.Raw/100, 0, 1)
	}
	macdScore := 0.0
	if r, ok := byName["macd"]; ok {
		macdScore = r.Score
	}
	volumeZ := 0.0
	if r, ok := byName["volume"]; ok {
		volumeZ = fusion.Clamp(r.Raw, -5, 5)
	}

	volumeBUSD := 0.0
	change24h := 0.0
	trend := 0.0
	if in.Snapshot != nil {
		volumeBUSD = in.Snapshot.Volume24h / 1e9
		change24h = in.Snapshot.Change24hPct / 100
		if in.Snapshot.Change24hPct > 0 {
			trend = 1
		} else if in.Snapshot.Change24hPct < 0 {
			trend = -1
		}
	}

	sentScore := 0.0
	sentConfidence := 0.0
	if in.Sentiment != nil {
		sentScore = in.Sentiment.Score
		sentConfidence = in.Sentiment.Confidence
	}

	return []float64{
		rsiNorm,
		macdScore,
		volumeBUSD,
		change24h,
		trend,
		sentScore,
		sentConfidence,
		returnVolatility(in.Candles),
		volumeZ,
		fusion.Clamp(float64(len(in.Readings))/5, 0, 1),
	}
}

// returnVolatility is the sample standard deviation of close-to-close
// returns over the candle window.
func returnVolatility(candles []domain.Candle) float64 {
	if len(candles) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}
	m := 0.0
	for _, r := range returns {
		m += r
	}
	m /= float64(len(returns))
	v := 0.0
	for _, r := range returns {
		d := r - m
		v += d * d
	}
	return math.Sqrt(v / float64(len(returns)-1))
}
