// Package watcher turns raw filesystem events on the Claude data tree into
// debounced, classified change notifications. Each logical entity (the
// stats file, one session, one settings scope) debounces independently, and
// the debounce interval stretches while the raw event rate is high so a
// rebase or bulk sync does not trigger a reload storm.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/bus"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const (
	baseDelay      = 250 * time.Millisecond
	escalatedDelay = 2 * time.Second
	burstWindow    = time.Second
	burstThreshold = 10
	tickInterval   = 50 * time.Millisecond
)

// Handler receives debounced change notifications. Implementations reload
// the affected entity; calls for different entities may overlap but calls
// for the same entity never do.
type Handler interface {
	HandleStatsChange(ctx context.Context)
	HandleSessionChange(ctx context.Context, path string, removed bool)
	HandleSettingsChange(ctx context.Context, scope models.SettingsScope)
}

// change is one classified, pending notification.
type change struct {
	entity  string
	path    string
	scope   models.SettingsScope
	removed bool
	kind    kind
	due     time.Time
}

type kind int

const (
	kindIgnored kind = iota
	kindStats
	kindSession
	kindSettings
)

// Watcher owns the fsnotify instance and the debounce loop.
type Watcher struct {
	fs      *fsnotify.Watcher
	handler Handler
	events  *bus.Bus
	log     *slog.Logger

	claudeDir   string
	projectsDir string
	statsFile   string

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a watcher over the standard tree rooted at claudeDir. The
// projects tree, the stats file's directory, and the global settings
// directory are watched immediately; project settings directories join the
// watch set as sessions reveal them.
func New(claudeDir string, handler Handler, events *bus.Bus, log *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:          fs,
		handler:     handler,
		events:      events,
		log:         log,
		claudeDir:   claudeDir,
		projectsDir: filepath.Join(claudeDir, "projects"),
		statsFile:   filepath.Join(claudeDir, "stats-cache.json"),
		done:        make(chan struct{}),
	}

	if err := w.setupWatches(); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return w, nil
}

// setupWatches registers the claude dir plus every project directory.
func (w *Watcher) setupWatches() error {
	if err := w.fs.Add(w.claudeDir); err != nil {
		return err
	}
	// The projects tree may not exist yet on a fresh install.
	if _, err := os.Stat(w.projectsDir); err != nil {
		return nil
	}
	return filepath.Walk(w.projectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.fs.Add(path); err != nil {
				return err
			}
		}
		return nil
	})
}

// WatchProjectSettings adds a project's .claude directory to the watch set
// so local and project settings edits are seen. Missing directories are
// fine; they get picked up when created under an already-watched parent.
func (w *Watcher) WatchProjectSettings(projectPath string) {
	dir := filepath.Join(projectPath, ".claude")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if err := w.fs.Add(dir); err != nil {
			w.log.Debug("cannot watch project settings", "dir", dir, "error", err)
		}
	}
}

// Start runs the debounce loop until ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Close stops intake and waits for in-flight reloads to finish.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	pending := make(map[string]*change)
	running := make(map[string]bool)
	finished := make(chan string, 64)
	var recent []time.Time

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// Reloads still in flight when the loop exits are waited on by Close
	// through the shared WaitGroup.
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			now := time.Now()
			recent = pruneWindow(append(recent, now), now)

			c := w.classify(ev)
			if c.kind == kindIgnored {
				continue
			}
			delay := baseDelay
			if len(recent) > burstThreshold {
				delay = escalatedDelay
			}
			if prev, ok := pending[c.entity]; ok {
				prev.removed = prev.removed || c.removed
				prev.due = now.Add(delay)
			} else {
				c.due = now.Add(delay)
				pending[c.entity] = &c
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watch error", "error", err)
			w.events.Publish(bus.Event{Type: bus.WatcherError, Message: err.Error()})

		case entity := <-finished:
			delete(running, entity)

		case <-ticker.C:
			now := time.Now()
			for entity, c := range pending {
				if now.Before(c.due) {
					continue
				}
				if running[entity] {
					// A reload for this entity is still going; hold the
					// notification for the next tick after it finishes.
					c.due = now.Add(baseDelay)
					continue
				}
				delete(pending, entity)
				running[entity] = true
				w.dispatch(ctx, *c, finished)
			}
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, c change, finished chan<- string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			select {
			case finished <- c.entity:
			case <-ctx.Done():
			}
		}()

		switch c.kind {
		case kindStats:
			w.handler.HandleStatsChange(ctx)
		case kindSession:
			w.handler.HandleSessionChange(ctx, c.path, c.removed)
		case kindSettings:
			w.handler.HandleSettingsChange(ctx, c.scope)
		}
	}()
}

// classify maps one raw event onto a logical entity. New directories under
// the projects tree join the watch set here.
func (w *Watcher) classify(ev fsnotify.Event) change {
	name := ev.Name
	base := filepath.Base(name)

	if ev.Op&fsnotify.Create != 0 && strings.HasPrefix(name, w.projectsDir+string(filepath.Separator)) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.fs.Add(name); err != nil {
				w.log.Debug("cannot watch new project dir", "dir", name, "error", err)
			}
			return change{kind: kindIgnored}
		}
	}

	switch {
	case name == w.statsFile:
		return change{kind: kindStats, entity: "stats"}

	case strings.HasSuffix(base, ".jsonl") &&
		strings.HasPrefix(name, w.projectsDir+string(filepath.Separator)):
		removed := ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
		return change{
			kind:    kindSession,
			entity:  "session:" + name,
			path:    name,
			removed: removed,
		}

	case base == "settings.json" || base == "settings.local.json":
		scope := models.ScopeProject
		if base == "settings.local.json" {
			scope = models.ScopeLocal
		} else if filepath.Dir(name) == w.claudeDir {
			scope = models.ScopeGlobal
		}
		return change{
			kind:   kindSettings,
			entity: "settings:" + string(scope),
			scope:  scope,
		}
	}
	return change{kind: kindIgnored}
}

func pruneWindow(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-burstWindow)
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}
