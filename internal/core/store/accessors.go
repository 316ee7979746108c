package store

import (
	"sort"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

// Every accessor returns copies. Callers can hold, sort, and mutate the
// results without racing the store.

// Stats returns the latest stats snapshot, or nil when none was loaded.
func (s *Store) Stats() *models.StatsCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.Clone()
}

// Settings returns the effective merged settings, or nil before load.
func (s *Store) Settings() *models.MergedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// SessionCount reports the number of known sessions.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Session returns one session by ID.
func (s *Store) Session(id string) (*models.SessionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, errs.ErrNotInitialized
	}
	meta, ok := s.sessions[id]
	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	return meta.Clone(), nil
}

// Snapshot returns every session as a flat slice, for analytics.
func (s *Store) Snapshot() []models.SessionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionMetadata, 0, len(s.sessions))
	for _, meta := range s.sessions {
		out = append(out, *meta.Clone())
	}
	return out
}

// SessionsByProject groups sessions by project path, each group sorted by
// last activity, newest first.
func (s *Store) SessionsByProject() map[string][]models.SessionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]models.SessionMetadata)
	for _, meta := range s.sessions {
		out[meta.ProjectPath] = append(out[meta.ProjectPath], *meta.Clone())
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool {
			return group[i].LastTimestamp.After(group[j].LastTimestamp)
		})
	}
	return out
}

// RecentSessions returns up to limit sessions ordered by last activity,
// newest first. limit <= 0 means all.
func (s *Store) RecentSessions(limit int) []models.SessionMetadata {
	all := s.Snapshot()
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastTimestamp.After(all[j].LastTimestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Degraded reports the current health classification.
func (s *Store) Degraded() models.DegradedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.degraded
	if len(s.degraded.Missing) > 0 {
		d.Missing = append([]string(nil), s.degraded.Missing...)
	}
	return d
}

// Report returns the latest load report, or nil before load.
func (s *Store) Report() *models.LoadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return nil
	}
	cp := *s.report
	cp.Entries = append([]models.ReportEntry(nil), s.report.Entries...)
	return &cp
}

// Loaded reports whether InitialLoad has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
