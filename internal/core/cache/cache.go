// Package cache persists parsed session metadata keyed by the identity of
// the file it came from. A hit requires path, mtime and size to all match;
// any change to the file invalidates its entry. The cache is strictly an
// accelerator: every operation degrades to a no-op when the backing
// database is unavailable.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const writeQueueSize = 256

// Key identifies one cached entry. Mtime is carried in nanoseconds so a
// same-second rewrite still misses.
type Key struct {
	Path    string
	MtimeNS int64
	Size    int64
}

// KeyFor builds a Key from a file's current stat info.
func KeyFor(path string, info os.FileInfo) Key {
	return Key{Path: path, MtimeNS: info.ModTime().UnixNano(), Size: info.Size()}
}

type writeReq struct {
	key  Key
	meta *models.SessionMetadata
}

// Cache is a sqlite-backed metadata cache with a single writer goroutine.
// Put never blocks the caller and at most one write per path is in flight;
// later puts for a path already queued replace the queued payload.
type Cache struct {
	conn   *sql.DB
	log    *slog.Logger
	writes chan writeReq
	done   chan struct{}

	mu       sync.Mutex
	pending  map[string]*writeReq
	disabled bool
	dropped  int64
}

// Open opens or creates the cache database at path. Open never fails the
// caller: when the database cannot be opened or its schema cannot be
// prepared, the returned cache is disabled and every Get misses.
func Open(path string, log *slog.Logger) *Cache {
	c := &Cache{
		log:     log,
		writes:  make(chan writeReq, writeQueueSize),
		done:    make(chan struct{}),
		pending: make(map[string]*writeReq),
	}

	conn, err := openDB(path)
	if err != nil {
		log.Warn("metadata cache unavailable, continuing without it",
			"path", path, "error", err)
		c.disabled = true
		close(c.done)
		return c
	}
	c.conn = conn

	go c.writer()
	return c
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite only supports one writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS session_cache (
			path      TEXT PRIMARY KEY,
			mtime_ns  INTEGER NOT NULL,
			size      INTEGER NOT NULL,
			metadata  TEXT NOT NULL,
			cached_at INTEGER NOT NULL
		)
	`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return conn, nil
}

// Get returns the cached metadata for key, or (nil, false) on any miss.
// A stored entry whose mtime or size differ from the key is a miss; a
// corrupt stored payload is a miss and is deleted.
func (c *Cache) Get(key Key) (*models.SessionMetadata, bool) {
	if c.isDisabled() {
		return nil, false
	}

	var mtimeNS, size int64
	var payload string
	err := c.conn.QueryRow(`
		SELECT mtime_ns, size, metadata FROM session_cache WHERE path = ?
	`, key.Path).Scan(&mtimeNS, &size, &payload)
	if err != nil {
		return nil, false
	}
	if mtimeNS != key.MtimeNS || size != key.Size {
		return nil, false
	}

	var meta models.SessionMetadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		c.log.Warn("dropping corrupt cache entry", "path", key.Path, "error", err)
		_, _ = c.conn.Exec(`DELETE FROM session_cache WHERE path = ?`, key.Path)
		return nil, false
	}
	return &meta, true
}

// Put queues metadata for persistence and returns immediately. When a write
// for the same path is already queued, the queued payload is replaced in
// place rather than enqueued again. When the queue is full the write is
// dropped; the cache repopulates on the next parse of the file.
func (c *Cache) Put(key Key, meta *models.SessionMetadata) {
	if c.isDisabled() {
		return
	}

	c.mu.Lock()
	if req, ok := c.pending[key.Path]; ok {
		req.key = key
		req.meta = meta
		c.mu.Unlock()
		return
	}
	req := &writeReq{key: key, meta: meta}
	c.pending[key.Path] = req
	c.mu.Unlock()

	select {
	case c.writes <- writeReq{key: key, meta: nil}:
	default:
		c.mu.Lock()
		delete(c.pending, key.Path)
		c.dropped++
		c.mu.Unlock()
	}
}

// Delete removes the entry for path, if any.
func (c *Cache) Delete(path string) {
	if c.isDisabled() {
		return
	}
	_, _ = c.conn.Exec(`DELETE FROM session_cache WHERE path = ?`, path)
}

// Dropped reports how many puts were discarded due to a full queue.
func (c *Cache) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops the writer after draining queued writes, then closes the
// database. Safe to call on a disabled cache.
func (c *Cache) Close() error {
	if c.isDisabled() {
		return nil
	}
	close(c.writes)
	<-c.done
	return c.conn.Close()
}

func (c *Cache) isDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// writer is the single goroutine allowed to write. It takes the freshest
// payload for a path from the pending map at write time, so coalesced puts
// persist the last value rather than the first.
func (c *Cache) writer() {
	defer close(c.done)
	for w := range c.writes {
		c.mu.Lock()
		req, ok := c.pending[w.key.Path]
		if ok {
			delete(c.pending, w.key.Path)
		}
		c.mu.Unlock()
		if !ok || req.meta == nil {
			continue
		}
		if err := c.persist(req.key, req.meta); err != nil {
			c.log.Warn("cache write failed", "path", req.key.Path, "error", err)
		}
	}
}

func (c *Cache) persist(key Key, meta *models.SessionMetadata) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = c.conn.Exec(`
		INSERT INTO session_cache (path, mtime_ns, size, metadata, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime_ns = excluded.mtime_ns,
			size = excluded.size,
			metadata = excluded.metadata,
			cached_at = excluded.cached_at
	`, key.Path, key.MtimeNS, key.Size, string(payload), time.Now().Unix())
	return err
}
