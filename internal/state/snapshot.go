package state

import "github.com/starford/laguz/internal/tree"

// Snapshot is the durable representation of the store: the nested forest,
// the pending-sync IDs, and the fetch scalars.
type Snapshot struct {
	Folders     []*tree.Item `json:"folders"`
	PendingSync []string     `json:"pendingSync"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
}

// Snapshot captures the current state. The result shares no memory with the
// store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	pending := make([]string, len(s.pending))
	copy(pending, s.pending)
	return Snapshot{
		Folders:     s.tree.Items(),
		PendingSync: pending,
		Loading:     s.loading,
		Error:       s.lastErr,
	}
}

// Restore replaces the store contents with a previously captured snapshot.
// Listeners are not notified: restoring is how persisted or externally
// written state re-enters the store, and echoing it back out would loop.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetItems(snap.Folders)
	s.pending = nil
	for _, id := range snap.PendingSync {
		s.addPending(id)
	}
	s.loading = snap.Loading
	s.lastErr = snap.Error
}
