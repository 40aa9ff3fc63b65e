// Package state implements the client-side note store: a single-writer
// container holding the item forest, the pending-sync set, and the
// loading/error scalars.
//
// Every mutation is a named operation that completes atomically -- tree
// update, pending-set update, and change notification happen under one lock
// before the next operation is admitted. Consumers (persistence, the sync
// scheduler, a UI) observe state only through copies.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/tree"
)

// Fields carries the mutable item fields for create and update operations.
// A nil pointer means "leave untouched"; fields that do not apply to the
// item's type are ignored, not errors.
type Fields struct {
	Name    *string
	Title   *string
	Content *string
}

// String returns a Fields pointer member for literals in call sites.
func String(s string) *string { return &s }

// Store owns the forest and the pending-sync set.
type Store struct {
	mu      sync.Mutex
	tree    *tree.Tree
	pending []string // ordered, set semantics
	loading bool
	lastErr string

	now       func() int64 // epoch millis, swappable in tests
	listeners []func(Snapshot)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tree: tree.New(),
		now:  func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock overrides the millisecond clock. Test hook.
func (s *Store) SetClock(now func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Subscribe registers fn to run after every completed mutation with the
// snapshot that mutation produced. Callbacks run while the store lock is
// still held, so no later mutation can interleave; used for write-through
// persistence.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.listeners {
		fn(snap)
	}
}

// CreateItem constructs a new local item and appends it to the forest.
//
// The item gets a fresh local placeholder ID, default field values
// ("New Folder" for unnamed folders, "Untitled" and empty content for
// notes), CreatedAt = LastUpdate = now, and IsLocal = true. When parentID is
// set it must resolve to an existing folder, otherwise
// apperr.ErrParentNotFound is returned and nothing is mutated. The new ID
// enters the pending-sync set.
func (s *Store) CreateItem(itemType tree.ItemType, parentID string, f Fields) (*tree.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item := &tree.Item{
		ID:         s.localID(itemType, now),
		Type:       itemType,
		CreatedAt:  now,
		LastUpdate: now,
		IsLocal:    true,
	}
	switch itemType {
	case tree.TypeFolder:
		item.Name = orDefault(f.Name, "New Folder")
	case tree.TypeNote:
		item.Title = orDefault(f.Title, "Untitled")
		if f.Content != nil {
			item.Content = *f.Content
		}
	}

	if err := s.tree.Append(item, parentID); err != nil {
		return nil, err
	}
	s.addPending(item.ID)
	s.notify()
	cp := *item
	return &cp, nil
}

// UpdateItem applies the given fields to an existing item. Folders accept
// Name; notes accept Title and Content and refresh LastUpdate. The ID is
// added to the pending-sync set if not already present.
func (s *Store) UpdateItem(id string, f Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tree.Find(id)
	if item == nil {
		return apperr.ErrItemNotFound
	}
	switch item.Type {
	case tree.TypeFolder:
		if f.Name != nil {
			item.Name = *f.Name
		}
	case tree.TypeNote:
		if f.Title != nil {
			item.Title = *f.Title
		}
		if f.Content != nil {
			item.Content = *f.Content
		}
		item.LastUpdate = s.now()
	}
	s.addPending(id)
	s.notify()
	return nil
}

// DeleteItem removes the item (and, for folders, its entire subtree) and
// unconditionally drops the ID from the pending-sync set, so a local-only
// creation deleted before syncing is never sent. The removed item is
// returned so the caller can decide whether a remote delete is due.
func (s *Store) DeleteItem(id string) (*tree.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tree.Find(id)
	if item == nil {
		return nil, apperr.ErrItemNotFound
	}
	removed := *item
	s.tree.Remove(id)
	s.removePending(id)
	s.notify()
	return &removed, nil
}

// MarkSynced removes id from the pending-sync set.
func (s *Store) MarkSynced(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePending(id)
	s.notify()
}

// ApplySynced folds a successful create/update response into the store: the
// item found under oldID is overwritten in place with the server fields, its
// ID becomes the server-assigned one (position preserved), IsLocal is
// cleared, and the pending entry is removed. When oldID is no longer in the
// tree -- deleted while the call was in flight -- the response is discarded
// and false is returned; deleted items are never resurrected.
func (s *Store) ApplySynced(oldID string, serverItem *tree.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.tree.Find(oldID)
	if item == nil {
		// Nothing changed unless a stray pending entry was dropped, so do
		// not push an unchanged snapshot to listeners.
		if s.removePending(oldID) {
			s.notify()
		}
		return false
	}
	item.Name = serverItem.Name
	item.Title = serverItem.Title
	item.Content = serverItem.Content
	item.CreatedAt = serverItem.CreatedAt
	item.LastUpdate = serverItem.LastUpdate
	item.IsLocal = false
	if serverItem.ID != oldID {
		if err := s.tree.Rename(oldID, serverItem.ID); err != nil {
			// Server handed out an ID we already hold; keep the local one.
			s.removePending(oldID)
			s.notify()
			return true
		}
	}
	s.removePending(oldID)
	s.notify()
	return true
}

// ApplyRemoteDelete removes id from the tree if still present. Idempotent: a
// local delete usually got there first.
func (s *Store) ApplyRemoteDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.tree.Remove(id)
	if removed {
		s.removePending(id)
		s.notify()
	}
	return removed
}

// ReplaceFromServer folds a full-tree fetch into the store: server items win
// for everything the server knows, while root-level local-only items are
// re-appended so work created offline is never silently dropped.
func (s *Store) ReplaceFromServer(items []*tree.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var localOnly []*tree.Item
	for _, root := range s.tree.Items() {
		if root.IsLocal {
			localOnly = append(localOnly, root)
		}
	}
	merged := make([]*tree.Item, 0, len(items)+len(localOnly))
	merged = append(merged, items...)
	merged = append(merged, localOnly...)
	s.tree.SetItems(merged)
	s.loading = false
	s.lastErr = ""
	s.notify()
}

// SetLoading records whether a full-tree fetch is in flight.
func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
	s.notify()
}

// SetError records the last fetch error message.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
	s.loading = false
	s.notify()
}

// Clear empties the forest and the pending-sync set (logout).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree.New()
	s.pending = nil
	s.loading = false
	s.lastErr = ""
	s.notify()
}

// Find returns a copy of the item with the given ID, or nil. The copy
// carries no Children; use Items for the nested form.
func (s *Store) Find(id string) *tree.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.tree.Find(id)
	if item == nil {
		return nil
	}
	cp := *item
	return &cp
}

// ParentID returns the ID of the folder containing id, or "".
func (s *Store) ParentID(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.ParentID(id)
}

// Items returns the forest in nested form. The result shares no memory with
// the store.
func (s *Store) Items() []*tree.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Items()
}

// Len returns the total number of items in the forest.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}

// Pending returns the pending-sync IDs in insertion order.
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pending))
	copy(out, s.pending)
	return out
}

// IsPending reports whether id awaits a remote write.
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

// Loading reports whether a full-tree fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the last recorded fetch error message.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// localID builds a fresh placeholder ID of the form local_<type>_<millis>,
// bumping the timestamp until it is unique within the forest.
func (s *Store) localID(itemType tree.ItemType, now int64) string {
	for {
		id := fmt.Sprintf("local_%s_%d", itemType, now)
		if !s.tree.Contains(id) {
			return id
		}
		now++
	}
}

func (s *Store) addPending(id string) {
	for _, p := range s.pending {
		if p == id {
			return
		}
	}
	s.pending = append(s.pending, id)
}

func (s *Store) removePending(id string) bool {
	for i, p := range s.pending {
		if p == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

func orDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
