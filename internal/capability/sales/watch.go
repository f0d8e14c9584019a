package sales

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Notifier is told when the set of sales files changes.
type Notifier interface {
	NotifyResourcesChanged(ctx context.Context)
	Log(ctx context.Context, level mcp.LoggingLevel, data any)
}

// Watch reports changes to CSV files in the store's data directory until ctx
// is done. The watcher is registered before Watch returns; events are handled
// on a background goroutine.
func (s *Store) Watch(ctx context.Context, notifier Notifier) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := w.Add(s.dataDir); err != nil {
		_ = w.Close()

		return fmt.Errorf("watch %s: %w", s.dataDir, err)
	}

	s.log.Info("Watching sales data", "dir", s.dataDir)

	go s.watch(ctx, w, notifier)

	return nil
}

func (s *Store) watch(ctx context.Context, w *fsnotify.Watcher, notifier Notifier) {
	defer func() {
		_ = w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if !relevant(ev) {
				continue
			}

			s.log.Debug("Sales data changed", "file", ev.Name, "op", ev.Op.String())
			notifier.NotifyResourcesChanged(ctx)
			notifier.Log(ctx, "info", fmt.Sprintf("sales data changed: %s", filepath.Base(ev.Name)))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			s.log.Warn("Watcher error", "error", err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(ev.Name), ".csv") {
		return false
	}

	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
