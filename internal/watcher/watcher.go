// Package watcher reindexes projects automatically when files under their
// roots change, using fsnotify with per-project debouncing.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/pkg/types"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches project roots and triggers a full reindex after changes
// settle. Events for one project collapse into a single reindex.
type Watcher struct {
	indexer   *indexer.Indexer
	config    *indexer.Config
	logger    *zap.Logger
	debounce  time.Duration
	recursive bool

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	roots    map[string]string // root path -> project name
	timers   map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the settle window before a reindex fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive controls whether subdirectories of each root are watched.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// New creates a watcher that reindexes through idx using cfg.
func New(idx *indexer.Indexer, cfg *indexer.Config, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = indexer.DefaultConfig()
	}
	w := &Watcher{
		indexer:   idx,
		config:    cfg,
		logger:    logger,
		debounce:  defaultDebounce,
		recursive: true,
		roots:     make(map[string]string),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins delivering events. It returns immediately; the event loop runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Watch registers a project root. Changes to supported files under it trigger
// a debounced reindex of the whole project.
func (w *Watcher) Watch(project, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return errors.New("watcher not started")
	}
	if _, ok := w.roots[abs]; ok {
		return nil
	}
	if err := w.addTreeLocked(abs); err != nil {
		return err
	}
	w.roots[abs] = project
	w.logger.Info("watching project root",
		zap.String("project", project),
		zap.String("root", abs))
	return nil
}

// Unwatch stops watching a project root. Indexed blocks are untouched.
func (w *Watcher) Unwatch(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	project, ok := w.roots[abs]
	if !ok {
		return
	}
	delete(w.roots, abs)
	if t, ok := w.timers[project]; ok {
		t.Stop()
		delete(w.timers, project)
	}
	if w.watcher != nil {
		_ = w.watcher.Remove(abs)
	}
}

// Stop shuts the watcher down and cancels pending reindexes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for project, t := range w.timers {
		t.Stop()
		delete(w.timers, project)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	project, root := w.projectFor(path)
	if project == "" {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if !w.supported(path) {
			return
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if !w.supported(path) {
			return
		}
	default:
		return
	}

	w.logger.Debug("file change",
		zap.String("project", project),
		zap.String("op", ev.Op.String()),
		zap.String("path", path))
	w.scheduleReindex(ctx, project, root)
}

// handleNewDirectory extends the watch to a directory created after Start.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil || !w.recursive {
		return
	}
	if err := w.addTreeLocked(dir); err != nil {
		w.logger.Warn("failed to watch new directory",
			zap.String("path", dir), zap.Error(err))
	}
}

// scheduleReindex arms (or re-arms) the project's debounce timer.
func (w *Watcher) scheduleReindex(ctx context.Context, project, root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[project]; ok {
		t.Stop()
	}
	w.timers[project] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, project)
		w.mu.Unlock()
		w.reindex(ctx, project, root)
	})
}

func (w *Watcher) reindex(ctx context.Context, project, root string) {
	report, err := w.indexer.IndexDirectory(ctx, project, root, w.config)
	switch {
	case errors.Is(err, types.ErrAlreadyIndexing):
		// A manual reindex is running; the next change event reschedules.
		w.logger.Debug("reindex skipped, already running",
			zap.String("project", project))
	case err != nil:
		w.logger.Error("auto reindex failed",
			zap.String("project", project), zap.Error(err))
	default:
		w.logger.Info("auto reindex complete",
			zap.String("project", project),
			zap.Int("blocks_indexed", report.BlocksIndexed),
			zap.Int("files_failed", report.FilesFailed),
			zap.Duration("duration", report.Duration))
	}
}

// projectFor maps an event path to its registered project root.
func (w *Watcher) projectFor(path string) (project, root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for r, p := range w.roots {
		if r == path || inDir(r, path) {
			return p, r
		}
	}
	return "", ""
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// supported reports whether the extractor can parse this file.
func (w *Watcher) supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.indexer.Extractor().Supports(path)
}

func (w *Watcher) addTreeLocked(root string) error {
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "vendor") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}
