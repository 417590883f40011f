// Package watch monitors a repository's .git directory and triggers a
// refresh callback when refs, HEAD, or the index change. It uses fsnotify
// with a polling fallback, and debounces bursts (a rebase touches dozens of
// files) into a single notification.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces event bursts; a rebase or fetch touches many
// ref files in quick succession and should refresh once.
const DefaultDebounce = 500 * time.Millisecond

// DefaultPollInterval is the stat interval used when fsnotify is
// unavailable (network filesystems, watch limit exhausted).
const DefaultPollInterval = 2 * time.Second

// ErrAlreadyStarted is returned by Start on a running watcher.
var ErrAlreadyStarted = errors.New("watcher already started")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked (debounced) when the repository
// state changes.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher monitors one repository's .git directory.
type Watcher struct {
	gitDir       string
	debounce     time.Duration
	pollInterval time.Duration
	onChange     func()
	forcePoll    bool

	fsWatcher *fsnotify.Watcher
	polling   bool
	lastState string

	mu      sync.Mutex
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a watcher for the repository at repoPath.
func New(repoPath string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		gitDir:       filepath.Join(abs, ".git"),
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		onChange:     func() {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// watchedDirs lists the directories whose entries matter: HEAD and
// packed-refs live in .git itself, loose refs under refs/heads, refs/remotes
// and refs/tags. fsnotify is not recursive, so each is added individually;
// missing directories (no remotes yet) are skipped and picked up on the
// next Start after a refresh recreates the watcher.
func (w *Watcher) watchedDirs() []string {
	dirs := []string{w.gitDir, filepath.Join(w.gitDir, "refs")}
	for _, sub := range []string{"heads", "remotes", "tags"} {
		dirs = append(dirs, filepath.Join(w.gitDir, "refs", sub))
	}
	return dirs
}

// Start begins watching. It falls back to polling when fsnotify cannot be
// set up.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.polling = w.forcePoll
	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.polling = true
		} else {
			added := 0
			for _, dir := range w.watchedDirs() {
				if err := fsw.Add(dir); err == nil {
					added++
				}
			}
			if added == 0 {
				fsw.Close()
				w.polling = true
			} else {
				w.fsWatcher = fsw
				go w.watchEvents()
			}
		}
	}
	if w.polling {
		w.lastState = w.stateFingerprint()
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops the watcher and cancels any pending debounced notification.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.started = false
}

// IsPolling reports whether the watcher is running in polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

func (w *Watcher) watchEvents() {
	events := w.fsWatcher.Events
	errs := w.fsWatcher.Errors
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if relevantEvent(event) {
				w.trigger()
			}
		case _, ok := <-errs:
			if !ok {
				return
			}
		}
	}
}

// relevantEvent filters out the noise: lock files churn on every git
// invocation including pure reads, and only write-ish ops matter.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if filepath.Ext(name) == ".lock" {
		return false
	}
	switch name {
	case "HEAD", "ORIG_HEAD", "FETCH_HEAD", "MERGE_HEAD", "packed-refs", "index":
		return true
	}
	// Loose ref files have no extension and live under refs/.
	return filepath.Base(filepath.Dir(event.Name)) != ".git"
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			state := w.stateFingerprint()
			w.mu.Lock()
			changed := state != w.lastState
			w.lastState = state
			w.mu.Unlock()
			if changed {
				w.trigger()
			}
		}
	}
}

// stateFingerprint summarizes the mtimes of the key state files; any ref
// update, checkout, or staging operation touches at least one of them.
func (w *Watcher) stateFingerprint() string {
	var fp string
	for _, name := range []string{"HEAD", "packed-refs", "index"} {
		if info, err := os.Stat(filepath.Join(w.gitDir, name)); err == nil {
			fp += name + info.ModTime().String() + ";"
		}
	}
	for _, dir := range w.watchedDirs() {
		if info, err := os.Stat(dir); err == nil {
			fp += dir + info.ModTime().String() + ";"
		}
	}
	return fp
}

// trigger schedules the debounced onChange callback, extending the window
// when already pending.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			w.onChange()
		}
	})
}
