// Package store owns the authoritative in-memory view of sessions, stats,
// and settings. It drives the initial load, applies incremental reloads
// from the watcher, tracks degraded state, and publishes every completed
// change on the event bus. The lock guards only the snapshot swap; no I/O
// ever happens while it is held.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/bus"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/cache"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/config"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/settings"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/stats"
	"github.com/FlorianBruniaux/ccboard-sub001/pkg/ccsessions"
)

// scanConcurrency bounds the parse fan-out during the initial load.
const scanConcurrency = 8

// Store is the single source of truth consumed by presentation layers.
type Store struct {
	cfg         *config.Config
	cache       *cache.Cache
	events      *bus.Bus
	log         *slog.Logger
	projectPath string // project whose settings tiers apply, may be ""

	mu       sync.RWMutex
	sessions map[string]*models.SessionMetadata // by session ID
	byPath   map[string]string                  // file path -> session ID
	stats    *models.StatsCache
	settings *models.MergedConfig
	report   *models.LoadReport
	degraded models.DegradedState
	loaded   bool
}

// Option configures a Store.
type Option func(*Store)

// WithProject sets the project whose settings layers are merged on top of
// the global tier.
func WithProject(path string) Option {
	return func(s *Store) { s.projectPath = path }
}

// New builds a store. The cache may be a disabled one; the store never
// depends on it for correctness.
func New(cfg *config.Config, metaCache *cache.Cache, events *bus.Bus, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		cfg:      cfg,
		cache:    metaCache,
		events:   events,
		log:      log,
		sessions: make(map[string]*models.SessionMetadata),
		byPath:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events exposes the bus for subscribers.
func (s *Store) Events() *bus.Bus { return s.events }

// InitialLoad scans every session file, reads stats and settings, swaps in
// the full snapshot, and publishes LoadCompleted. Individual failures are
// collected in the returned report; only an unusable projects tree is
// surfaced as fatal there, and even then the store stays serviceable in
// read-only mode.
func (s *Store) InitialLoad(ctx context.Context) *models.LoadReport {
	report := &models.LoadReport{}

	sessions, byPath := s.scanAllSessions(ctx, report)
	statsCache := s.loadStats(ctx, report)
	merged, settingsReport := settings.Merge(settings.Layers(s.cfg.ClaudeDir, s.projectPath))
	report.Merge(settingsReport)

	degraded := models.DegradedFromReport(report)

	s.mu.Lock()
	s.sessions = sessions
	s.byPath = byPath
	s.stats = statsCache
	s.settings = merged
	s.report = report
	s.degraded = degraded
	s.loaded = true
	s.mu.Unlock()

	s.log.Info("initial load complete",
		"sessions", report.SessionsScanned,
		"failed", report.SessionsFailed,
		"stats", report.StatsLoaded,
		"health", degraded.Mode.String())
	s.events.Publish(bus.Event{Type: bus.LoadCompleted})
	return report
}

// scanAllSessions walks the projects tree and parses every .jsonl with a
// bounded worker pool. The cache is consulted per file; parse failures are
// isolated into report entries.
func (s *Store) scanAllSessions(ctx context.Context, report *models.LoadReport) (map[string]*models.SessionMetadata, map[string]string) {
	sessions := make(map[string]*models.SessionMetadata)
	byPath := make(map[string]string)

	root := s.cfg.ProjectsDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		// A missing tree just means no sessions yet. A tree that exists but
		// cannot be read loses every session, which is fatal.
		sev := models.SeverityFatal
		if errors.Is(err, fs.ErrNotExist) {
			sev = models.SeverityInfo
		}
		report.Add("sessions", sev,
			fmt.Sprintf("cannot read projects directory: %v", err),
			errs.Suggestion(errs.New(errs.KindIO, "read projects", root, err)))
		return sessions, byPath
	}

	var paths []string
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		if err := ccsessions.ValidateSessionDir(root, dir); err != nil {
			report.Add("sessions", models.SeverityWarning, err.Error(), "")
			continue
		}
		files, err := os.ReadDir(dir)
		if err != nil {
			report.Add("sessions", models.SeverityWarning,
				fmt.Sprintf("cannot read %s: %v", dir, err), "")
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".jsonl") {
				paths = append(paths, filepath.Join(dir, f.Name()))
			}
		}
	}

	var (
		mu       sync.Mutex
		scanErrs error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			meta, parseStats, err := s.scanSession(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.SessionsFailed++
				scanErrs = multierr.Append(scanErrs, err)
				return nil
			}
			if parseStats.Oversized > 0 || parseStats.Truncated {
				report.Add("sessions", models.SeverityWarning,
					fmt.Sprintf("%s: %d oversized lines skipped, truncated=%v",
						path, parseStats.Oversized, parseStats.Truncated), "")
			}
			report.SessionsScanned++
			sessions[meta.SessionID] = meta
			byPath[path] = meta.SessionID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Add("sessions", models.SeverityError, err.Error(), "")
	}

	for _, err := range multierr.Errors(scanErrs) {
		report.Add("sessions", models.SeverityWarning, err.Error(),
			errs.Suggestion(err))
	}
	return sessions, byPath
}

// scanSession parses one file, going through the cache when the file's
// identity matches a stored entry. A cache hit returns zero ParseStats.
func (s *Store) scanSession(path string) (*models.SessionMetadata, ccsessions.ParseStats, error) {
	var zero ccsessions.ParseStats
	info, err := os.Stat(path)
	if err != nil {
		return nil, zero, errs.New(errs.KindIO, "stat session", path, err)
	}
	key := cache.KeyFor(path, info)
	if meta, ok := s.cache.Get(key); ok {
		return meta, zero, nil
	}

	meta, parseStats, err := ccsessions.Parse(path)
	if err != nil {
		return nil, parseStats, errs.New(errs.KindParse, "parse session", path, err)
	}
	if err := meta.Validate(); err != nil {
		return nil, parseStats, errs.New(errs.KindParse, "validate session", path, err)
	}
	if parseStats.Malformed > 0 || parseStats.Oversized > 0 || parseStats.Truncated {
		s.log.Debug("session parsed with skips",
			"path", path,
			"malformed", parseStats.Malformed,
			"oversized", parseStats.Oversized,
			"truncated", parseStats.Truncated)
	}

	s.cache.Put(key, meta)
	return meta, parseStats, nil
}

func (s *Store) loadStats(ctx context.Context, report *models.LoadReport) *models.StatsCache {
	sc, err := stats.Load(ctx, s.cfg.StatsFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.Add("stats", models.SeverityInfo, "no stats file yet", "")
		} else {
			report.Add("stats", models.SeverityError, err.Error(), errs.Suggestion(err))
		}
		return nil
	}
	report.StatsLoaded = true
	return sc
}
