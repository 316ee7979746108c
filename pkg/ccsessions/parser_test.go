package ccsessions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSession(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("writing session file: %v", err)
	}
	return path
}

func userLine(ts, text string) string {
	return fmt.Sprintf(`{"type":"user","timestamp":%q,"sessionId":"s1","message":{"role":"user","content":%q}}`, ts, text)
}

func assistantLine(ts, model string, in, out, cacheRead, cacheWrite int64) string {
	return fmt.Sprintf(`{"type":"assistant","timestamp":%q,"message":{"model":%q,"usage":{"input_tokens":%d,"output_tokens":%d,"cache_read_input_tokens":%d,"cache_creation_input_tokens":%d},"content":[{"type":"text","text":"ok"}]}}`,
		ts, model, in, out, cacheRead, cacheWrite)
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "abc123.jsonl",
		userLine("2025-06-01T10:00:00Z", "fix the build"),
		assistantLine("2025-06-01T10:00:05Z", "claude-sonnet-4", 100, 200, 50, 25),
		assistantLine("2025-06-01T10:01:00Z", "claude-sonnet-4", 10, 20, 5, 0),
		`{"type":"session_end","timestamp":"2025-06-01T10:02:00Z"}`,
	)

	meta, stats, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if meta.SessionID != "abc123" {
		t.Errorf("SessionID = %q, want abc123", meta.SessionID)
	}
	if meta.MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", meta.MessageCount)
	}
	if got := meta.Tokens.Input; got != 110 {
		t.Errorf("Tokens.Input = %d, want 110", got)
	}
	if got := meta.Tokens.Total(); got != 410 {
		t.Errorf("Tokens.Total() = %d, want 410", got)
	}
	if len(meta.Models) != 1 || meta.Models[0] != "claude-sonnet-4" {
		t.Errorf("Models = %v, want [claude-sonnet-4]", meta.Models)
	}
	if meta.FirstPrompt != "fix the build" {
		t.Errorf("FirstPrompt = %q, want 'fix the build'", meta.FirstPrompt)
	}
	if meta.FirstTimestamp.IsZero() || meta.LastTimestamp.IsZero() {
		t.Error("timestamps should be set")
	}
	if !meta.LastTimestamp.After(meta.FirstTimestamp) {
		t.Error("LastTimestamp should be after FirstTimestamp")
	}
	if stats.Malformed != 0 {
		t.Errorf("Malformed = %d, want 0", stats.Malformed)
	}
}

func TestParse_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "same.jsonl",
		userLine("2025-06-01T10:00:00Z", "hello"),
		assistantLine("2025-06-01T10:00:05Z", "claude-opus-4", 1, 2, 3, 4),
	)

	first, _, err := Parse(path)
	if err != nil {
		t.Fatalf("first Parse() error = %v", err)
	}
	second, _, err := Parse(path)
	if err != nil {
		t.Fatalf("second Parse() error = %v", err)
	}
	if first.Tokens != second.Tokens || first.MessageCount != second.MessageCount ||
		first.FirstPrompt != second.FirstPrompt || !first.FirstTimestamp.Equal(second.FirstTimestamp) {
		t.Errorf("Parse is not idempotent: %+v vs %+v", first, second)
	}
}

func TestParse_MalformedLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "bad.jsonl",
		userLine("2025-06-01T10:00:00Z", "first"),
		`{this is not json`,
		`not even close`,
		assistantLine("2025-06-01T10:00:05Z", "claude-haiku-4", 5, 5, 0, 0),
	)

	meta, stats, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stats.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", stats.Malformed)
	}
	if meta.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", meta.MessageCount)
	}
}

func TestParse_OversizedLineSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.jsonl")

	// A 15 MiB single line must be skipped without aborting the scan and
	// without counting as a message.
	big := `{"type":"user","message":{"role":"user","content":"` +
		strings.Repeat("x", 15*1024*1024) + `"}}`
	content := userLine("2025-06-01T10:00:00Z", "before") + "\n" +
		big + "\n" +
		userLine("2025-06-01T10:05:00Z", "after") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	meta, stats, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if stats.Oversized != 1 {
		t.Errorf("Oversized = %d, want 1", stats.Oversized)
	}
	if meta.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2 (oversized line must not count)", meta.MessageCount)
	}
}

func TestParse_LineCountTruncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "long.jsonl")

	var sb strings.Builder
	for i := 0; i < MaxLines+100; i++ {
		sb.WriteString(`{"type":"user","message":{"role":"user","content":"m"}}`)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	meta, stats, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !stats.Truncated {
		t.Error("Truncated = false, want true")
	}
	if meta.MessageCount != MaxLines {
		t.Errorf("MessageCount = %d, want %d", meta.MessageCount, MaxLines)
	}
}

func TestParse_TokenAliasFields(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "alias.jsonl",
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4","usage":{"inputTokens":7,"outputTokens":11,"cacheReadInputTokens":13,"cacheCreationInputTokens":17}}}`,
	)

	meta, _, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := [4]int64{7, 11, 13, 17}
	got := [4]int64{meta.Tokens.Input, meta.Tokens.Output, meta.Tokens.CacheRead, meta.Tokens.CacheWrite}
	if got != want {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestParse_MeaningfulPrompt(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name: "slash command skipped",
			lines: []string{
				userLine("2025-06-01T10:00:00Z", "/compact"),
				userLine("2025-06-01T10:01:00Z", "real question"),
			},
			want: "real question",
		},
		{
			name: "command transcript skipped",
			lines: []string{
				userLine("2025-06-01T10:00:00Z", "<command-name>clear</command-name>"),
				userLine("2025-06-01T10:01:00Z", "caveat free prompt"),
			},
			want: "caveat free prompt",
		},
		{
			name: "caveat noise skipped",
			lines: []string{
				userLine("2025-06-01T10:00:00Z", "Caveat: the messages below were generated"),
				userLine("2025-06-01T10:01:00Z", "actual work"),
			},
			want: "actual work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSession(t, dir, "p.jsonl", tt.lines...)
			meta, _, err := Parse(path)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if meta.FirstPrompt != tt.want {
				t.Errorf("FirstPrompt = %q, want %q", meta.FirstPrompt, tt.want)
			}
		})
	}
}

func TestParse_AgentSessionParent(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "agent-xyz.jsonl",
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","sessionId":"parent-1","message":{"role":"user","content":"sub task"}}`,
	)

	meta, _, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if meta.SessionID != "agent-xyz" {
		t.Errorf("SessionID = %q, want agent-xyz", meta.SessionID)
	}
	if meta.ParentSessionID != "parent-1" {
		t.Errorf("ParentSessionID = %q, want parent-1", meta.ParentSessionID)
	}
}

func TestParse_ToolCounts(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "tools.jsonl",
		`{"type":"assistant","message":{"model":"claude-sonnet-4","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Bash"},{"type":"tool_use","name":"Read"},{"type":"text","text":"done"}]}}`,
		`{"type":"assistant","message":{"model":"claude-sonnet-4","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Bash"}]}}`,
	)

	meta, _, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if meta.ToolCounts["Bash"] != 2 {
		t.Errorf("ToolCounts[Bash] = %d, want 2", meta.ToolCounts["Bash"])
	}
	if meta.ToolCounts["Read"] != 1 {
		t.Errorf("ToolCounts[Read] = %d, want 1", meta.ToolCounts["Read"])
	}
}

func TestParse_InvalidPath(t *testing.T) {
	_, _, err := Parse("nonexistent.jsonl")
	if err == nil {
		t.Error("Parse() should return error for invalid path")
	}
}

func TestDecodeProjectPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/u/.claude/projects/-Users-neil-xuku-invoice/s.jsonl", "/Users/neil/xuku/invoice"},
		{"/home/u/.claude/projects/-tmp-work/s.jsonl", "/tmp/work"},
		// Traversal components are stripped, never honored.
		{"/home/u/.claude/projects/-Users-..-..-etc/s.jsonl", "/Users/etc"},
	}
	for _, tt := range tests {
		if got := DecodeProjectPath(tt.path); got != tt.want {
			t.Errorf("DecodeProjectPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestValidateSessionDir(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "-Users-x-proj")
	if err := os.Mkdir(real, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ValidateSessionDir(root, real); err != nil {
		t.Errorf("ValidateSessionDir(real dir) = %v, want nil", err)
	}

	outside := t.TempDir()
	if err := ValidateSessionDir(root, outside); err == nil {
		t.Error("ValidateSessionDir(outside root) should fail")
	}

	link := filepath.Join(root, "linked")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := ValidateSessionDir(root, link); err == nil {
		t.Error("ValidateSessionDir(symlink) should fail")
	}
}
