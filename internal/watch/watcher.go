// Package watch invalidates cached tables when their source files change on
// disk, so a long-running dashboard never serves a stale table.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cached tables of one source and reports how many went.
type Invalidator interface {
	Invalidate(ctx context.Context, source string) int
}

// ChangeFunc is called once per settled batch of changes.
type ChangeFunc func(sources []string, dropped int)

type Config struct {
	Sources  []string
	Debounce time.Duration
	OnChange ChangeFunc
	Logger   *zap.Logger
}

// Watcher watches the directories holding the sources rather than the files
// themselves: exports are usually replaced by rename, which ends a watch on
// the old inode.
type Watcher struct {
	fs       *fsnotify.Watcher
	cache    Invalidator
	sources  map[string]bool
	debounce time.Duration
	onChange ChangeFunc
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

func New(cache Invalidator, cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		cache:    cache,
		sources:  make(map[string]bool, len(cfg.Sources)),
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, s := range cfg.Sources {
		path := filepath.Clean(s)
		w.sources[path] = true
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Start processes file events until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return
	}
	path := filepath.Clean(ev.Name)
	if !w.sources[path] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// flush invalidates every source changed since the last flush.
func (w *Watcher) flush() {
	w.mu.Lock()
	sources := make([]string, 0, len(w.pending))
	for s := range w.pending {
		sources = append(sources, s)
	}
	w.pending = make(map[string]bool)
	w.timer = nil
	w.mu.Unlock()

	if len(sources) == 0 {
		return
	}
	sort.Strings(sources)

	dropped := 0
	for _, s := range sources {
		dropped += w.cache.Invalidate(context.Background(), s)
	}
	w.logger.Info("Sources changed", zap.Strings("sources", sources), zap.Int("dropped", dropped))

	if w.onChange != nil {
		w.onChange(sources, dropped)
	}
}

func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}
