package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// File is a Medium backed by a single snapshot file. Writes are atomic
// (tmp file, fsync, rename) so a crash mid-save never leaves a torn
// snapshot behind.
type File struct {
	path string

	mu        sync.Mutex
	lastSaved []byte
}

// NewFile creates a file medium at path, creating parent directories as
// needed.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("persist: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("persist: mkdir: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute snapshot path.
func (f *File) Path() string { return f.path }

// Load reads the snapshot file. A missing file means no snapshot yet.
func (f *File) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist: read %s: %w", f.path, err)
	}
	return data, true, nil
}

// Save atomically replaces the snapshot file: tmp file, fsync, rename.
func (f *File) Save(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".laguz-tmp-*")
	if err != nil {
		return fmt.Errorf("persist: temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("persist: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("persist: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	committed = true
	f.lastSaved = append(f.lastSaved[:0], data...)
	return nil
}

// Watch observes the snapshot file for writes by other processes and calls
// onChange after each external change, until ctx is cancelled. Events are
// debounced so a burst of writes yields one reload, and changes whose
// content matches what this process last saved are ignored (our own
// write-through echoing back).
//
// Different tabs or processes may race to write the snapshot; last writer
// wins and everyone else reloads.
func (f *File) Watch(ctx context.Context, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: renames replace the file node, so watching the
	// file itself would go stale after the first atomic save.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return err
	}

	logger.Debug("persist: watching snapshot", slog.String("path", f.path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return nil

		case <-reloadCh:
			data, ok, err := f.Load()
			if err != nil || !ok {
				continue
			}
			f.mu.Lock()
			own := bytes.Equal(data, f.lastSaved)
			f.mu.Unlock()
			if own {
				continue
			}
			logger.Debug("persist: snapshot changed externally", slog.String("path", f.path))
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != f.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("persist: watch error", slog.String("error", watchErr.Error()))
		}
	}
}
