package provider

import (
	"hash/fnv"
	"strings"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
)

// FearGreedPoint is one observation of the alternative.me crypto fear
// and greed index.
type FearGreedPoint struct {
	Value            int
	Classification   string
	Timestamp        time.Time
	TimeUntilUpdateS int
}

/// Reading maps the index onto the sentiment scale: 0 (extreme fear)
// reads -1, 50 neutral, 100 (extreme greed) +1. The index is already an
// aggregate of many inputs so it carries a fixed high confidence.
func (p FearGreedPoint) Reading() domain.SentimentReading {
	return domain.SentimentReading{
		SourceID:   "fear_greed",
		Score:      fusion.Clamp((float64(p.Value)-50)/50, -1, 1),
		Confidence: 0.9,
		Timestamp:  p.Timestamp,
	}
}

// itemID derives a stable numeric id from a provider's string id so
// scored items can be matched back across a batch call.
func itemID(source, sourceItemID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(sourceItemID))
	return int64(h.Sum64() &^ (1 << 63))
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.ReplaceAll(in, "\n", " ")
	in = strings.ReplaceAll(in, "\r", " ")
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
