// Package client wires the local-first note machinery into one runtime:
// snapshot medium -> persistence adapter -> state store -> sync scheduler ->
// remote folders API.
package client

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/persist"
	"github.com/starford/laguz/internal/state"
	"github.com/starford/laguz/internal/syncer"
	"github.com/starford/laguz/internal/tree"
)

// DefaultResyncInterval is how often the background loop retries pending
// items and refreshes the tree.
const DefaultResyncInterval = time.Minute

// Options configures a Client.
type Options struct {
	Debounce       time.Duration // per-item debounce, 0 -> syncer.DefaultDebounce
	ResyncInterval time.Duration // background retry period, 0 -> DefaultResyncInterval
	Logger         *slog.Logger
}

// Client is the client-side sync runtime. All mutation methods return
// immediately; network traffic happens asynchronously behind the scheduler.
type Client struct {
	store   *state.Store
	sched   *syncer.Scheduler
	adapter *persist.Adapter
	medium  persist.Medium
	logger  *slog.Logger
	resync  time.Duration
}

// New builds a client over the given snapshot medium and remote API,
// restoring any persisted state and attaching write-through persistence.
func New(medium persist.Medium, remote syncer.RemoteClient, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resync := opts.ResyncInterval
	if resync <= 0 {
		resync = DefaultResyncInterval
	}

	store := state.New()
	adapter := persist.NewAdapter(medium, logger)
	store.Restore(adapter.Load())
	adapter.Attach(store)

	return &Client{
		store:   store,
		sched:   syncer.NewScheduler(store, remote, opts.Debounce, logger),
		adapter: adapter,
		medium:  medium,
		logger:  logger,
		resync:  resync,
	}
}

// Store exposes the underlying state store for read access.
func (c *Client) Store() *state.Store { return c.store }

// Scheduler exposes the sync scheduler, mainly for tests and shutdown.
func (c *Client) Scheduler() *syncer.Scheduler { return c.sched }

// CreateNote creates a note locally and dispatches its first sync
// immediately (structural operations are not debounced).
func (c *Client) CreateNote(parentID string, f state.Fields) (*tree.Item, error) {
	item, err := c.store.CreateItem(tree.TypeNote, parentID, f)
	if err != nil {
		return nil, err
	}
	c.sched.ItemCreated(item.ID)
	return item, nil
}

// CreateFolder creates a folder locally and dispatches its first sync
// immediately.
func (c *Client) CreateFolder(parentID string, f state.Fields) (*tree.Item, error) {
	item, err := c.store.CreateItem(tree.TypeFolder, parentID, f)
	if err != nil {
		return nil, err
	}
	c.sched.ItemCreated(item.ID)
	return item, nil
}

// EditItem applies a field edit locally and restarts the item's debounce
// timer. The UI sees the change immediately; the network sees it after the
// quiet period.
func (c *Client) EditItem(id string, f state.Fields) error {
	if err := c.store.UpdateItem(id, f); err != nil {
		return err
	}
	c.sched.ItemEdited(id)
	return nil
}

// DeleteItem removes the item (and subtree) locally and, for already-synced
// items, issues a best-effort remote delete.
func (c *Client) DeleteItem(id string) error {
	removed, err := c.store.DeleteItem(id)
	if err != nil {
		return err
	}
	c.sched.ItemDeleted(removed)
	return nil
}

// Refresh fetches the full tree and merges it, preserving local-only items.
func (c *Client) Refresh(ctx context.Context) error {
	return c.sched.Refresh(ctx)
}

// SyncOnce flushes outstanding debounce timers, pushes every pending item,
// and refreshes the tree from the server. The one-shot CLI path.
func (c *Client) SyncOnce(ctx context.Context) error {
	c.sched.Flush(ctx)
	c.sched.Resync(ctx)
	c.sched.Wait()
	return c.sched.Refresh(ctx)
}

// Run keeps the client alive until ctx is cancelled: a periodic
// resync/refresh loop retries pending items, and -- when the medium is a
// snapshot file -- a watcher reloads state written by other processes
// (last writer wins, no cross-process locking).
func (c *Client) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if file, ok := c.medium.(*persist.File); ok {
		g.Go(func() error {
			return file.Watch(gCtx, c.logger, func() {
				c.store.Restore(c.adapter.Load())
				c.logger.Info("client: snapshot reloaded from disk")
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(c.resync)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				c.sched.Flush(context.Background())
				c.sched.Wait()
				return nil
			case <-ticker.C:
				c.sched.Resync(gCtx)
				if err := c.sched.Refresh(gCtx); err != nil {
					c.logger.Warn("client: refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	return g.Wait()
}
