package registry

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Registry serves the current model bundle and swaps it when a new one
// appears in the artifact directory.
type Registry struct {
	mu      sync.RWMutex
	dir     string
	current *Bundle
	logger  *zap.Logger

	// onReload is called after a successful swap.
	onReload func(meta Metadata)
}

func NewRegistry(dir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{dir: dir, logger: logger}
}

// OnReload registers a callback invoked after each successful reload.
func (r *Registry) OnReload(fn func(meta Metadata)) {
	r.mu.Lock()
	r.onReload = fn
	r.mu.Unlock()
}

// Bundles returns the metadata of every saved bundle, oldest first.
func (r *Registry) Bundles() ([]Metadata, error) {
	return ListMetadata(r.dir)
}

// Current returns the active bundle, or nil when none is loaded.
func (r *Registry) Current() *Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Reload loads the newest bundle from disk and makes it current.
func (r *Registry) Reload() error {
	bundle, err := LoadLatest(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.current = bundle
	fn := r.onReload
	r.mu.Unlock()

	r.logger.Info("model bundle loaded",
		zap.String("model", bundle.Metadata.ModelName),
		zap.String("version", bundle.Metadata.TrainingDate),
		zap.Float64("accuracy", bundle.Metadata.Accuracy))

	if fn != nil {
		fn(bundle.Metadata)
	}
	return nil
}

// Watch reloads the registry whenever a new metadata file lands in the
// artifact directory. It blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}
	r.logger.Info("watching artifact directory", zap.String("dir", r.dir))

	// Debounce: a save writes four files, reload once after the burst.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.Contains(event.Name, metadataPrefix) {
				continue
			}
			pending = time.After(500 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("artifact watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				r.logger.Error("model reload failed", zap.Error(err))
			}
		}
	}
}
