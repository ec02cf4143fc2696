package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/jsdeps/internal/analyzer"
	"github.com/zheng/jsdeps/internal/pipeline"
	"github.com/zheng/jsdeps/internal/storage"
	"github.com/zheng/jsdeps/internal/syntax"
)

// DefaultDebounce is the quiet period after the last change before a rebuild starts
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a source tree and rebuilds the stored graph when JS/TS files change
type Watcher struct {
	projectPath string
	db          *storage.DB
	provider    syntax.Provider
	logger      *slog.Logger
	fsWatcher   *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// one rebuild at a time
	runMu sync.Mutex

	// Callbacks
	onAnalysisStart func(changed []string)
	onAnalysisDone  func(result *pipeline.Result, duration time.Duration)
	onError         func(error)

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDelay = d
		}
	}
}

// WithLogger sets the logger handed to each pipeline run
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithOnAnalysisStart sets the callback for when a rebuild starts
func WithOnAnalysisStart(fn func(changed []string)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when a rebuild has been stored
func WithOnAnalysisDone(fn func(result *pipeline.Result, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher over projectPath that stores rebuilt graphs in db
func New(projectPath string, db *storage.DB, provider syntax.Provider, opts ...WatcherOption) (*Watcher, error) {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		projectPath:   root,
		db:            db,
		provider:      provider,
		logger:        slog.Default(),
		fsWatcher:     fsWatcher,
		debounceDelay: DefaultDebounce,
		pendingFiles:  make(map[string]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(root); err != nil {
		cancel()
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds every directory the collector would enter
func (w *Watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && analyzer.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.eventLoop()
	}()
}

// Stop stops watching, cancels a pending rebuild and waits for the event loop to exit
func (w *Watcher) Stop() error {
	w.cancel()

	w.pendingMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.pendingMu.Unlock()

	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories are watched too; files created inside them before the
	// Add show up through the rebuild anyway.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if analyzer.SkipDir(filepath.Base(event.Name)) {
				return
			}
			if err := w.addDirs(event.Name); err != nil {
				w.reportError(err)
			}
			w.schedule(event.Name)
			return
		}
	}

	if !analyzer.IsSourceFile(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule records a change and resets the debounce timer
func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	w.pendingFiles[path] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerAnalysis)
}

// triggerAnalysis runs the rebuild after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}

	if w.onAnalysisStart != nil {
		w.onAnalysisStart(files)
	}

	if _, err := w.Rebuild(w.ctx); err != nil && w.ctx.Err() == nil {
		w.reportError(fmt.Errorf("analysis failed: %w", err))
	}
}

// Rebuild runs a full analysis of the project and replaces the stored graph.
// Concurrent calls are serialized.
func (w *Watcher) Rebuild(ctx context.Context) (*pipeline.Result, error) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := time.Now()

	result, err := pipeline.Run(ctx, w.projectPath, w.provider, pipeline.WithLogger(w.logger))
	if err != nil {
		return nil, err
	}
	if _, err := w.db.SaveResult(result); err != nil {
		return nil, fmt.Errorf("failed to store graph: %w", err)
	}

	if w.onAnalysisDone != nil {
		w.onAnalysisDone(result, time.Since(start))
	}
	return result, nil
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	w.logger.Error("watch error", "err", err)
}
