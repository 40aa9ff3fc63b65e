// Package persist snapshots the note store to a durable medium and restores
// it on load, migrating older snapshot shapes forward.
package persist

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/laguz/internal/state"
	"github.com/starford/laguz/internal/tree"
)

// Version is the current snapshot schema version.
//
// History:
//
//	1 -- flat note list under "notes"
//	2 -- nested folder/note forest under "folders" + pending-sync set
const Version = 2

// Medium is the opaque byte store a snapshot lives in.
type Medium interface {
	// Load returns the stored bytes, or ok=false when nothing was stored yet.
	Load() (data []byte, ok bool, err error)
	// Save replaces the stored bytes.
	Save(data []byte) error
}

// record is the on-medium envelope. Payload fields stay raw so that loading
// tolerates shape mismatches per field instead of failing the whole snapshot.
type record struct {
	Version     int             `json:"version"`
	Folders     json.RawMessage `json:"folders,omitempty"`
	PendingSync json.RawMessage `json:"pendingSync,omitempty"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`

	// Notes carries the version-1 flat list, present only in old snapshots.
	Notes json.RawMessage `json:"notes,omitempty"`
}

// migrations maps a target version to the pure step that lifts a record from
// the previous version. Append-only, forward-only.
var migrations = map[int]func(record) record{
	2: migrateV1ToV2,
}

// migrateV1ToV2 lifts the flat version-1 note list to the tree shape. The
// old list carried no hierarchy or sync state, so it is discarded and the
// forest starts empty, matching what the original client shipped.
func migrateV1ToV2(rec record) record {
	rec.Notes = nil
	rec.Folders = nil
	rec.PendingSync = nil
	rec.Loading = false
	rec.Error = ""
	return rec
}

// Adapter reads and writes versioned snapshots through a Medium.
type Adapter struct {
	medium Medium
	logger *slog.Logger
}

// NewAdapter creates an adapter over the given medium.
func NewAdapter(medium Medium, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{medium: medium, logger: logger}
}

// Load reads the stored snapshot, migrates it to the current version, and
// decodes it. Any failure -- nothing stored, unreadable medium, corrupt
// JSON, or payload fields of the wrong container type -- degrades to an
// empty-but-valid snapshot. Load never fails application startup.
func (a *Adapter) Load() state.Snapshot {
	empty := state.Snapshot{Folders: []*tree.Item{}, PendingSync: []string{}}

	data, ok, err := a.medium.Load()
	if err != nil {
		a.logger.Warn("persist: load failed, starting empty", slog.String("error", err.Error()))
		return empty
	}
	if !ok {
		return empty
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		a.logger.Warn("persist: corrupt snapshot, starting empty", slog.String("error", err.Error()))
		return empty
	}
	if rec.Version < 1 {
		rec.Version = 1
	}
	for v := rec.Version + 1; v <= Version; v++ {
		if step, ok := migrations[v]; ok {
			rec = step(rec)
		}
		rec.Version = v
	}

	snap := empty
	if len(rec.Folders) > 0 {
		var items []*tree.Item
		if err := json.Unmarshal(rec.Folders, &items); err != nil {
			a.logger.Warn("persist: unreadable folders, defaulting empty", slog.String("error", err.Error()))
		} else {
			snap.Folders = items
		}
	}
	if len(rec.PendingSync) > 0 {
		var pending []string
		if err := json.Unmarshal(rec.PendingSync, &pending); err != nil {
			a.logger.Warn("persist: unreadable pending set, defaulting empty", slog.String("error", err.Error()))
		} else {
			snap.PendingSync = pending
		}
	}
	snap.Loading = rec.Loading
	snap.Error = rec.Error
	return snap
}

// Save writes the snapshot at the current version. Errors are logged and
// returned; callers on the mutation path treat them as non-fatal.
func (a *Adapter) Save(snap state.Snapshot) error {
	folders, err := json.Marshal(snap.Folders)
	if err != nil {
		return err
	}
	pending, err := json.Marshal(snap.PendingSync)
	if err != nil {
		return err
	}
	data, err := json.Marshal(record{
		Version:     Version,
		Folders:     folders,
		PendingSync: pending,
		Loading:     snap.Loading,
		Error:       snap.Error,
	})
	if err != nil {
		return err
	}
	if err := a.medium.Save(data); err != nil {
		a.logger.Warn("persist: save failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Attach subscribes the adapter to the store so every mutation is written
// through to the medium.
func (a *Adapter) Attach(st *state.Store) {
	st.Subscribe(func(snap state.Snapshot) {
		_ = a.Save(snap)
	})
}
