package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/bus"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/settings"
)

// The store implements watcher.Handler: each debounced change reloads its
// entity, swaps the result in under the lock, refreshes degraded state, and
// publishes exactly one event.

// HandleStatsChange re-reads the stats file.
func (s *Store) HandleStatsChange(ctx context.Context) {
	sc, err := s.loadStatsForReload(ctx)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.stats = sc
	s.mu.Unlock()
	s.events.Publish(bus.Event{Type: bus.StatsUpdated})
}

func (s *Store) loadStatsForReload(ctx context.Context) (*models.StatsCache, error) {
	report := &models.LoadReport{}
	sc := s.loadStats(ctx, report)
	s.replaceSource("stats", report)
	if sc == nil && !report.StatsLoaded {
		if report.MaxSeverity() >= models.SeverityError {
			s.log.Warn("stats reload failed, keeping previous snapshot")
			return nil, errors.New("stats reload failed")
		}
		// File was deleted; an empty stats view is accurate.
	}
	return sc, nil
}

// HandleSessionChange re-parses one session file, or drops it on removal.
func (s *Store) HandleSessionChange(ctx context.Context, path string, removed bool) {
	if removed {
		if _, err := os.Stat(path); err == nil {
			// Rename events fire for atomic rewrites too; the file being
			// present means this is an update, not a removal.
			removed = false
		}
	}
	if removed {
		s.removeSession(path)
		return
	}

	meta, parseStats, err := s.scanSession(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.removeSession(path)
			return
		}
		s.log.Warn("session reload failed", "path", path, "error", err)
		s.appendEntry("sessions", models.SeverityWarning, err.Error(), errs.Suggestion(err))
		return
	}
	if parseStats.Oversized > 0 || parseStats.Truncated {
		s.appendEntry("sessions", models.SeverityWarning,
			fmt.Sprintf("%s: %d oversized lines skipped, truncated=%v",
				path, parseStats.Oversized, parseStats.Truncated), "")
	}

	s.mu.Lock()
	_, existed := s.byPath[path]
	s.sessions[meta.SessionID] = meta
	s.byPath[path] = meta.SessionID
	s.mu.Unlock()

	evType := bus.SessionCreated
	if existed {
		evType = bus.SessionUpdated
	}
	s.events.Publish(bus.Event{Type: evType, SessionID: meta.SessionID})
}

func (s *Store) removeSession(path string) {
	s.mu.Lock()
	id, ok := s.byPath[path]
	if ok {
		delete(s.byPath, path)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.cache.Delete(path)
	s.events.Publish(bus.Event{Type: bus.SessionRemoved, SessionID: id})
}

// HandleSettingsChange recomputes the full three-tier merge. The merge is
// cheap enough that no per-scope partial update is worth the bookkeeping.
func (s *Store) HandleSettingsChange(_ context.Context, scope models.SettingsScope) {
	merged, report := settings.Merge(settings.Layers(s.cfg.ClaudeDir, s.projectPath))
	s.replaceSources([]string{
		"settings:global", "settings:project", "settings:local",
	}, report)

	s.mu.Lock()
	s.settings = merged
	s.mu.Unlock()
	s.events.Publish(bus.Event{Type: bus.ConfigChanged, Scope: scope})
}

// replaceSource swaps every report entry from one source for the fresh
// ones, then recomputes degraded state from the combined report.
func (s *Store) replaceSource(source string, fresh *models.LoadReport) {
	s.replaceSources([]string{source}, fresh)
}

func (s *Store) replaceSources(sources []string, fresh *models.LoadReport) {
	drop := make(map[string]bool, len(sources))
	for _, src := range sources {
		drop[src] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		s.report = &models.LoadReport{}
	}
	kept := s.report.Entries[:0]
	for _, e := range s.report.Entries {
		if !drop[e.Source] {
			kept = append(kept, e)
		}
	}
	s.report.Entries = append(kept, fresh.Entries...)
	// The replaced sources own their loaded flag; a reload that lost the
	// stats file must not leave a stale StatsLoaded behind.
	if drop["stats"] {
		s.report.StatsLoaded = fresh.StatsLoaded
	}
	for src := range drop {
		if strings.HasPrefix(src, "settings:") {
			s.report.SettingsLoaded = fresh.SettingsLoaded
			break
		}
	}
	s.degraded = models.DegradedFromReport(s.report)
}

func (s *Store) appendEntry(source string, sev models.Severity, message, suggestion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		s.report = &models.LoadReport{}
	}
	s.report.Add(source, sev, message, suggestion)
	s.degraded = models.DegradedFromReport(s.report)
}
