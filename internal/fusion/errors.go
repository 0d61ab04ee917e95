package fusion

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a malformed WeightingPolicy. It is fatal at
// startup: an engine is never constructed from an invalid policy.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("fusion config %s: %s", e.Field, e.Reason)
}

// InsufficientSignalError is returned when every source was excluded
// (empty or stale) and no decision can be made. The caller surfaces
// "insufficient data" instead of guessing a recommendation.
type InsufficientSignalError struct {
	Symbol   string
	Excluded []string
}

func (e *InsufficientSignalError) Error() string {
	if len(e.Excluded) == 0 {
		return fmt.Sprintf("insufficient signal for %s: no sources available", e.Symbol)
	}
	return fmt.Sprintf("insufficient signal for %s: %s", e.Symbol, strings.Join(e.Excluded, "; "))
}
