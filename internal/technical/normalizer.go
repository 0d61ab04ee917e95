package technical

import (
	"math"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
)

// indicatorWeights shape how much each reading moves the combined score.
// Oscillators lead, the volume spike is a tiebreaker.
var indicatorWeights = map[string]float64{
	"rsi":       0.25,
	"macd":      0.25,
	"bollinger": 0.20,
	"momentum":  0.20,
	"volume":    0.10,
}

const fullCoverage = 5 // number of indicators when every input is available

// Normalizer folds indicator readings into a single technical Signal.
// Confidence is coverage times concentration: fewer computed indicators
// or widely scattered readings both pull it down.
type Normalizer struct{}

func NewNormalizer() *Normalizer { return &Normalizer{} }

// Normalize returns nil when no reading could be computed; a producer
// with nothing to say emits no Signal at all.
func (n *Normalizer) Normalize(symbol string, readings []Reading, at time.Time) *domain.Signal {
	if len(readings) == 0 {
		return nil
	}

	weightedSum := 0.0
	totalWeight := 0.0
	rationale := make([]string, 0, len(readings))
	scores := make([]float64, 0, len(readings))
	for _, r := range readings {
		w, ok := indicatorWeights[r.Name]
		if !ok || w <= 0 {
			continue
		}
		weightedSum += w * r.Score
		totalWeight += w
		scores = append(scores, r.Score)
		rationale = append(rationale, r.Note)
	}
	if totalWeight == 0 {
		return nil
	}
	score := fusion.Clamp(weightedSum/totalWeight, -1, 1)

	coverage := float64(len(scores)) / fullCoverage
	if coverage > 1 {
		coverage = 1
	}
	confidence := fusion.Clamp(coverage*(1-dispersion(scores)), 0, 1)

	return &domain.Signal{
		Symbol:     symbol,
		Source:     domain.SourceTechnical,
		Score:      score,
		Confidence: confidence,
		Timestamp:  at,
		Rationale:  rationale,
	}
}

// dispersion is the sample standard deviation of the readings, capped at
// 1 so confidence stays in range. Scores live in [-1,1], so a spread of
// a full unit already means the indicators point everywhere at once.
func dispersion(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	sd := stddev(scores, mean(scores))
	return math.Min(sd, 1)
}
