package models

import (
	"errors"
	"time"
)

// TokenUsage is the per-category token breakdown for a session or model.
// Totals are always summed from the categories; the source files carry a
// "total" field in some versions but it is not trustworthy across versions.
type TokenUsage struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cache_read"`
	CacheWrite int64 `json:"cache_write"`
}

// Total returns the sum of all token categories.
func (u TokenUsage) Total() int64 {
	return u.Input + u.Output + u.CacheRead + u.CacheWrite
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.CacheRead += other.CacheRead
	u.CacheWrite += other.CacheWrite
}

// SessionMetadata is the parsed view of one session JSONL file. It is built
// once by the parsing pipeline and never mutated afterwards; a re-scan
// replaces the whole value. The SessionID is derived from the file path and
// is stable for the process lifetime.
type SessionMetadata struct {
	SessionID       string         `json:"session_id"`
	ParentSessionID string         `json:"parent_session_id,omitempty"` // set for agent-* sessions
	FilePath        string         `json:"file_path"`
	ProjectPath     string         `json:"project_path"`
	GitBranch       string         `json:"git_branch,omitempty"`
	FirstTimestamp  time.Time      `json:"first_timestamp"`
	LastTimestamp   time.Time      `json:"last_timestamp"`
	MessageCount    int            `json:"message_count"`
	Tokens          TokenUsage     `json:"tokens"`
	Models          []string       `json:"models,omitempty"`
	FirstPrompt     string         `json:"first_prompt,omitempty"`
	ToolCounts      map[string]int `json:"tool_counts,omitempty"`
	FileSize        int64          `json:"file_size"`
}

// Validate checks if the metadata has required fields.
func (m *SessionMetadata) Validate() error {
	if m.SessionID == "" {
		return errors.New("session_id is required")
	}
	if m.FilePath == "" {
		return errors.New("file_path is required")
	}
	return nil
}

// Duration returns the wall-clock span of the session, or zero when either
// timestamp is missing.
func (m *SessionMetadata) Duration() time.Duration {
	if m.FirstTimestamp.IsZero() || m.LastTimestamp.IsZero() {
		return 0
	}
	return m.LastTimestamp.Sub(m.FirstTimestamp)
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal state.
func (m *SessionMetadata) Clone() *SessionMetadata {
	cp := *m
	if len(m.Models) > 0 {
		cp.Models = make([]string, len(m.Models))
		copy(cp.Models, m.Models)
	}
	if len(m.ToolCounts) > 0 {
		cp.ToolCounts = make(map[string]int, len(m.ToolCounts))
		for k, v := range m.ToolCounts {
			cp.ToolCounts[k] = v
		}
	}
	return &cp
}
