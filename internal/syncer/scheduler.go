package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/state"
	"github.com/starford/laguz/internal/tree"
)

// DefaultDebounce is the quiet period after the last edit to an item before
// its reconciliation call goes out.
const DefaultDebounce = 750 * time.Millisecond

// Scheduler converts bursts of local edits into a bounded rate of remote
// calls. Each editable item owns one debounce timer; structural operations
// (create, delete) dispatch immediately.
//
// Failures are absorbed here: a failed reconciliation leaves the item
// pending and local-only, fully editable offline, to be retried on the next
// edit or an explicit Resync. Nothing propagates to the caller as an error
// on the fire-and-forget paths.
type Scheduler struct {
	store  *state.Store
	client RemoteClient
	logger *slog.Logger
	delay  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler over the given store and remote client.
// delay <= 0 falls back to DefaultDebounce.
func NewScheduler(store *state.Store, client RemoteClient, delay time.Duration, logger *slog.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  store,
		client: client,
		logger: logger,
		delay:  delay,
		timers: map[string]*time.Timer{},
	}
}

// ItemEdited (re)starts the debounce timer for id. Any outstanding timer for
// the same item is cancelled first, so only the quiet period after the last
// keystroke triggers a call.
func (s *Scheduler) ItemEdited(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.dispatch(id)
	})
}

// ItemCreated dispatches the first sync for a newly created item
// immediately, without debouncing.
func (s *Scheduler) ItemCreated(id string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		_ = s.SyncNow(context.Background(), id)
	}()
}

// ItemDeleted cancels any outstanding timer for the removed item and, when
// the item had already been synced, issues a best-effort remote delete. A
// never-synced local item needs no remote call.
func (s *Scheduler) ItemDeleted(removed *tree.Item) {
	s.mu.Lock()
	if t, ok := s.timers[removed.ID]; ok {
		t.Stop()
		delete(s.timers, removed.ID)
	}
	s.mu.Unlock()

	if removed.IsLocal {
		return
	}
	id := removed.ID
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		err := s.client.DeleteItem(context.Background(), id)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("sync: remote delete failed", slog.String("id", id), slog.String("error", err.Error()))
			return
		}
		// Idempotent: the local delete already removed the node.
		s.store.ApplyRemoteDelete(id)
	}()
}

// dispatch runs a timer-fired sync; errors were already absorbed by SyncNow.
func (s *Scheduler) dispatch(id string) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	_ = s.SyncNow(context.Background(), id)
}

// SyncNow issues exactly one reconciliation call for the item's current
// state: a create while the item is still local (isNew), an update
// otherwise. On success the server response is folded back into the store
// (ID rewrite on first sync, fields overwritten in place). On failure the
// item simply stays pending; the error is returned for callers that want to
// count failures but is never required reading.
func (s *Scheduler) SyncNow(ctx context.Context, id string) error {
	item := s.store.Find(id)
	if item == nil {
		// Deleted between scheduling and firing; nothing to send.
		return nil
	}
	var (
		res *tree.Item
		err error
	)
	if item.IsLocal {
		res, err = s.client.CreateItem(ctx, item, s.store.ParentID(id))
	} else {
		res, err = s.client.UpdateItem(ctx, id, item)
	}
	if err != nil {
		s.logger.Warn("sync: item sync failed, keeping local copy",
			slog.String("id", id),
			slog.Bool("is_new", item.IsLocal),
			slog.String("error", err.Error()))
		return err
	}
	if res == nil {
		return nil
	}
	s.store.ApplySynced(id, res)
	return nil
}

// Resync pushes every pending item, best effort, in pending order. Items
// that fail stay pending.
func (s *Scheduler) Resync(ctx context.Context) {
	for _, id := range s.store.Pending() {
		if ctx.Err() != nil {
			return
		}
		_ = s.SyncNow(ctx, id)
	}
}

// Refresh performs a full-tree fetch and merges the result into the store,
// preserving root-level local-only items. The fetch error is recorded in
// the store's error scalar and also returned.
func (s *Scheduler) Refresh(ctx context.Context) error {
	s.store.SetLoading(true)
	items, err := s.client.FetchTree(ctx)
	if err != nil {
		s.store.SetError(err.Error())
		return err
	}
	s.store.ReplaceFromServer(items)
	return nil
}

// Flush cancels all outstanding debounce timers and runs their syncs
// synchronously. Used on shutdown and by the one-shot CLI path.
func (s *Scheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.timers))
	for id, t := range s.timers {
		t.Stop()
		ids = append(ids, id)
	}
	s.timers = map[string]*time.Timer{}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.SyncNow(ctx, id)
	}
}

// Wait blocks until all in-flight fire-and-forget calls have finished.
// Timers still pending are not waited for; Flush first if needed.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}
