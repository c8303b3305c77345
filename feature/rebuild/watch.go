package rebuild

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"regen/core/metadata"
	core "regen/core/rebuild"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// Watcher reports metadata records that were written or created.
type Watcher struct {
	Dir     string
	Changes <-chan string

	changes  chan string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for a metadata directory.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 16)
	return &Watcher{
		Dir:     dir,
		Changes: ch,
		changes: ch,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel. Changes nobody has read
// yet are discarded. Stop is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.watcher.Close()
		<-w.done
		close(w.changes)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(watchDebounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !metadata.IsRecordFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) < watchDebounce {
					continue
				}
				delete(pending, file)
				if !w.emit(file) {
					return
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// emit reports file unless the watcher is stopping. It returns false once
// Stop was called.
func (w *Watcher) emit(file string) bool {
	if info, err := os.Stat(file); err != nil || !info.Mode().IsRegular() {
		return true
	}
	select {
	case w.changes <- file:
		return true
	case <-w.stop:
		return false
	}
}

// Follow re-renders every changed record until ctx ends. Token failures are
// logged by the driver's observers and do not stop watching.
func Follow(ctx context.Context, w *Watcher, driver *core.Driver, req core.Request, logger *zap.Logger) error {
	logger.Info("Watching metadata for changes", zap.String("dir", w.Dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case file, ok := <-w.Changes:
			if !ok {
				return nil
			}
			res, err := driver.RebuildToken(ctx, req, file)
			if err != nil && res.Status == "" {
				// The environment itself is broken, not this token.
				return err
			}
		}
	}
}
