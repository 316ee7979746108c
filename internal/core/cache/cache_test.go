package cache

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMeta(id string) *models.SessionMetadata {
	return &models.SessionMetadata{
		SessionID:      id,
		FilePath:       "/tmp/" + id + ".jsonl",
		ProjectPath:    "/tmp",
		FirstTimestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		LastTimestamp:  time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		MessageCount:   4,
		Tokens:         models.TokenUsage{Input: 100, Output: 200},
		Models:         []string{"claude-sonnet-4"},
		FirstPrompt:    "do the thing",
		ToolCounts:     map[string]int{"Bash": 2},
	}
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c := Open(filepath.Join(t.TempDir(), "cache.db"), testLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// putSync writes through the async path and waits for the writer to land it.
func putSync(t *testing.T, c *Cache, key Key, meta *models.SessionMetadata) {
	t.Helper()
	c.Put(key, meta)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := c.Get(key); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("put never became visible")
}

func TestCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)
	key := Key{Path: "/tmp/s1.jsonl", MtimeNS: 12345, Size: 678}
	want := testMeta("s1")

	putSync(t, c, key, want)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() miss after put")
	}
	if got.SessionID != want.SessionID || got.MessageCount != want.MessageCount ||
		got.Tokens != want.Tokens || got.FirstPrompt != want.FirstPrompt {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if got.ToolCounts["Bash"] != 2 {
		t.Errorf("ToolCounts[Bash] = %d, want 2", got.ToolCounts["Bash"])
	}
}

func TestCacheMissOnChangedFile(t *testing.T) {
	c := openTestCache(t)
	key := Key{Path: "/tmp/s1.jsonl", MtimeNS: 100, Size: 50}
	putSync(t, c, key, testMeta("s1"))

	tests := []struct {
		name string
		key  Key
	}{
		{"mtime changed", Key{Path: key.Path, MtimeNS: 101, Size: 50}},
		{"size changed", Key{Path: key.Path, MtimeNS: 100, Size: 51}},
		{"unknown path", Key{Path: "/tmp/other.jsonl", MtimeNS: 100, Size: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.Get(tt.key); ok {
				t.Error("Get() hit, want miss")
			}
		})
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := openTestCache(t)
	key1 := Key{Path: "/tmp/s1.jsonl", MtimeNS: 100, Size: 50}
	putSync(t, c, key1, testMeta("s1"))

	// Same path, newer file identity. The old identity must miss afterwards.
	key2 := Key{Path: "/tmp/s1.jsonl", MtimeNS: 200, Size: 90}
	updated := testMeta("s1")
	updated.MessageCount = 9
	putSync(t, c, key2, updated)

	if _, ok := c.Get(key1); ok {
		t.Error("stale identity still hits")
	}
	got, ok := c.Get(key2)
	if !ok {
		t.Fatal("new identity misses")
	}
	if got.MessageCount != 9 {
		t.Errorf("MessageCount = %d, want 9", got.MessageCount)
	}
}

func TestCacheDelete(t *testing.T) {
	c := openTestCache(t)
	key := Key{Path: "/tmp/s1.jsonl", MtimeNS: 100, Size: 50}
	putSync(t, c, key, testMeta("s1"))

	c.Delete(key.Path)
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit after Delete")
	}
}

func TestCacheDisabled(t *testing.T) {
	// A directory path cannot be opened as a database file.
	dir := t.TempDir()
	c := Open(dir, testLogger())

	key := Key{Path: "/tmp/s1.jsonl", MtimeNS: 1, Size: 1}
	c.Put(key, testMeta("s1"))
	if _, ok := c.Get(key); ok {
		t.Error("disabled cache should always miss")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on disabled cache = %v", err)
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := Key{Path: "/tmp/s1.jsonl", MtimeNS: 7, Size: 3}

	c1 := Open(path, testLogger())
	putSync(t, c1, key, testMeta("s1"))
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	c2 := Open(path, testLogger())
	defer c2.Close()
	if _, ok := c2.Get(key); !ok {
		t.Error("entry lost across reopen")
	}
}
