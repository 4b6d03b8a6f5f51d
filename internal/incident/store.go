package incident

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

// Store holds the active snapshot behind an atomic pointer. Refreshes build
// a complete new snapshot and swap the reference, so in-flight analyses
// always read a consistent batch.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store seeded with an empty snapshot so callers never
// observe a nil batch.
func NewStore(classifier *severity.Classifier) *Store {
	s := &Store{}
	s.current.Store(BuildFromRecords(nil, classifier))
	return s
}

// Current returns the active snapshot. The result stays valid for the life
// of the caller's analysis even if a swap happens mid-flight.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs a new snapshot atomically.
func (s *Store) Swap(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
	zap.L().Info("incident: snapshot swapped",
		zap.Int("records", snap.Len()),
		zap.Int("dropped", snap.Dropped()),
		zap.Time("fetched_at", snap.FetchedAt()),
	)
}
