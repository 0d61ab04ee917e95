package fusion

import (
	"sync"

	"trademate/internal/domain"
)

type slotKey struct {
	symbol string
	source domain.SignalSource
}

// SnapshotStore holds the most recent Signal per (symbol, source) slot.
// Each producer owns write access to exactly one source slot, so writes
// never race each other; slots are replaced as whole values so readers
// always observe a self-consistent Signal. Slots start empty and are only
// ever overwritten, never deleted: staleness is expressed through age.
type SnapshotStore struct {
	mu    sync.RWMutex
	slots map[slotKey]domain.Signal
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{slots: make(map[slotKey]domain.Signal)}
}

// Push installs a fresh Signal in its source slot, last-write-wins.
// Score and confidence are clamped to their ranges so no degenerate
// values can enter the store. Signals without a symbol, source, or
// timestamp are dropped.
func (s *SnapshotStore) Push(sig domain.Signal) {
	if sig.Symbol == "" || sig.Source == "" || sig.Timestamp.IsZero() {
		return
	}
	sig.Score = Clamp(sig.Score, -1, 1)
	sig.Confidence = Clamp(sig.Confidence, 0, 1)

	s.mu.Lock()
	s.slots[slotKey{symbol: sig.Symbol, source: sig.Source}] = sig
	s.mu.Unlock()
}

// Latest returns the current Signal for one slot, if ever populated.
func (s *SnapshotStore) Latest(symbol string, source domain.SignalSource) (domain.Signal, bool) {
	s.mu.RLock()
	sig, ok := s.slots[slotKey{symbol: symbol, source: source}]
	s.mu.RUnlock()
	return sig, ok
}

// Snapshot returns a copy of all populated slots for a symbol. The copy
// is detached from the store, so the fusion engine computes over a fixed
// view even while producers keep pushing.
func (s *SnapshotStore) Snapshot(symbol string) map[domain.SignalSource]domain.Signal {
	out := make(map[domain.SignalSource]domain.Signal, len(domain.Sources))
	s.mu.RLock()
	for _, source := range domain.Sources {
		if sig, ok := s.slots[slotKey{symbol: symbol, source: source}]; ok {
			out[source] = sig
		}
	}
	s.mu.RUnlock()
	return out
}
