// Package watch re-evaluates an expression file whenever it or its table
// changes on disk.
package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
)

const DefaultDebounce = 100 * time.Millisecond

var (
	ErrAlreadyWatching = errors.New("already watching")
	ErrNotWatching     = errors.New("not watching")
)

// Update is delivered after every evaluation. Table belongs to the
// watcher's cache and is only valid during the callback.
type Update struct {
	Expr   string
	Result *lang.Result
	Table  *frame.Frame
	Err    error
}

type Options struct {
	Logger        *zap.Logger
	ParserOptions []lang.Option
	// Cache holds the loaded table. A private cache is created when nil
	// and closed by Stop.
	Cache *frame.Cache
	// Debounce is the quiet period after the last change before the
	// expression is evaluated again.
	Debounce time.Duration
	// Read loads the expression file. Defaults to os.ReadFile.
	Read func(path string) (string, error)
}

// Watcher watches one expression file and one table file.
type Watcher struct {
	exprPath  string
	tablePath string
	onUpdate  func(Update)

	logger    *zap.Logger
	read      func(path string) (string, error)
	parser    *lang.Parser
	cache     *frame.Cache
	ownsCache bool
	debounce  time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching bool
	done     chan struct{}
}

func New(exprPath, tablePath string, onUpdate func(Update), opts Options) (*Watcher, error) {
	exprAbs, err := filepath.Abs(exprPath)
	if err != nil {
		return nil, err
	}
	tableAbs, err := filepath.Abs(tablePath)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		exprPath:  exprAbs,
		tablePath: tableAbs,
		onUpdate:  onUpdate,
		logger:    opts.Logger,
		cache:     opts.Cache,
		debounce:  opts.Debounce,
		read:      opts.Read,
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.cache == nil {
		w.cache = frame.NewCache(nil)
		w.ownsCache = true
	}
	if w.read == nil {
		w.read = func(path string) (string, error) {
			b, err := os.ReadFile(path)
			return string(b), err
		}
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	popts := append([]lang.Option{}, opts.ParserOptions...)
	w.parser = lang.New(append(popts, lang.WithLogger(w.logger))...)
	return w, nil
}

// Start evaluates the expression once, then keeps re-evaluating it in the
// background until Stop is called.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	// watch the directories so files replaced by rename are still seen
	dirs := map[string]bool{
		filepath.Dir(w.exprPath):  true,
		filepath.Dir(w.tablePath): true,
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	w.watcher = watcher
	w.watching = true
	w.done = make(chan struct{})

	w.report(w.Evaluate())
	go w.watchLoop(watcher, w.done)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return ErrNotWatching
	}
	w.watching = false
	watcher, done := w.watcher, w.done
	w.mu.Unlock()

	err := watcher.Close()
	<-done
	if w.ownsCache {
		w.cache.Close()
	}
	return err
}

// Evaluate reads the expression and the table and runs the expression.
// It must not be called concurrently with a running watch loop.
func (w *Watcher) Evaluate() Update {
	expr, err := w.read(w.exprPath)
	if err != nil {
		return Update{Err: err}
	}
	up := Update{Expr: expr}

	tbl, err := w.cache.Get(w.tablePath)
	if err != nil {
		up.Err = fmt.Errorf("error loading table: %w", err)
		return up
	}
	up.Table = tbl
	up.Result, up.Err = w.parser.Run(up.Expr, tbl)
	return up
}

func (w *Watcher) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				timer.Stop()
				return
			}
			if w.handleFileEvent(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				timer.Stop()
				return
			}
			w.logger.Error("watch error", zap.Error(err))
		case <-timer.C:
			w.report(w.Evaluate())
		}
	}
}

// handleFileEvent reports whether event should trigger a re-evaluation.
func (w *Watcher) handleFileEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	switch filepath.Clean(event.Name) {
	case w.tablePath:
		w.cache.Invalidate(w.tablePath)
	case w.exprPath:
	default:
		return false
	}
	w.logger.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
	return true
}

func (w *Watcher) report(up Update) {
	if up.Err != nil {
		w.logger.Warn("evaluation failed", zap.String("file", w.exprPath), zap.Error(up.Err))
	} else {
		w.logger.Info("evaluated",
			zap.String("file", w.exprPath),
			zap.Stringer("kind", up.Result.Kind))
	}
	if w.onUpdate != nil {
		w.onUpdate(up)
	}
}
