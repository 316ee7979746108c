// Package ccsessions parses Claude Code session JSONL files into metadata
// without ever holding a whole file in memory. Malformed lines are skipped
// and counted; oversized lines and absurdly long files are bounded by hard
// limits so corrupt input cannot exhaust memory or hang a scan.
package ccsessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const (
	// MaxLineBytes is the per-line circuit breaker: longer lines are
	// drained and skipped, never buffered.
	MaxLineBytes = 10 * 1024 * 1024

	// MaxLines is the per-file circuit breaker: scanning stops here and
	// the result is flagged as truncated.
	MaxLines = 50000

	// previewRunes bounds the first-prompt preview length.
	previewRunes = 100

	agentPrefix = "agent-"
)

// ParseStats reports what the scan encountered beyond the metadata itself.
type ParseStats struct {
	LinesRead int
	Malformed int
	Oversized int
	Truncated bool
}

// rawEntry is the envelope shared by every JSONL line type.
type rawEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	CWD       string          `json:"cwd,omitempty"`
	GitBranch string          `json:"gitBranch,omitempty"`
}

// contentBlock is one element of a message content array.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// rawUsage tolerates the field-name drift across tool versions: both
// snake_case and camelCase spellings appear in the wild. Totals are summed
// from the categories, never read from a "total" field.
type rawUsage struct {
	Input          int64 `json:"input_tokens"`
	InputAlt       int64 `json:"inputTokens"`
	Output         int64 `json:"output_tokens"`
	OutputAlt      int64 `json:"outputTokens"`
	CacheRead      int64 `json:"cache_read_input_tokens"`
	CacheReadAlt   int64 `json:"cacheReadInputTokens"`
	CacheCreate    int64 `json:"cache_creation_input_tokens"`
	CacheCreateAlt int64 `json:"cacheCreationInputTokens"`
}

func pick(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

func (u rawUsage) tokens() models.TokenUsage {
	return models.TokenUsage{
		Input:      pick(u.Input, u.InputAlt),
		Output:     pick(u.Output, u.OutputAlt),
		CacheRead:  pick(u.CacheRead, u.CacheReadAlt),
		CacheWrite: pick(u.CacheCreate, u.CacheCreateAlt),
	}
}

type assistantPayload struct {
	Model   string         `json:"model,omitempty"`
	Usage   rawUsage       `json:"usage,omitempty"`
	Content []contentBlock `json:"content,omitempty"`
}

// Parse scans one session file and builds its metadata. It never loads the
// whole file, never fails on a malformed line, and never reads past the
// circuit breakers. The metadata is usable even when the stats report
// skipped or truncated input.
func Parse(path string) (meta *models.SessionMetadata, stats ParseStats, err error) {
	file, ferr := os.Open(path)
	if ferr != nil {
		return nil, stats, fmt.Errorf("failed to open file: %w", ferr)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to stat file: %w", err)
	}

	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	// Agent sessions keep the filename as their ID; the in-file sessionId
	// points at the parent session, not the agent itself.
	isAgent := strings.HasPrefix(sessionID, agentPrefix)

	meta = &models.SessionMetadata{
		SessionID:   sessionID,
		FilePath:    path,
		ProjectPath: DecodeProjectPath(path),
		FileSize:    info.Size(),
		ToolCounts:  make(map[string]int),
	}

	seenModels := make(map[string]bool)
	reader := bufio.NewReaderSize(file, 64*1024)

	for {
		line, oversized, rerr := readLine(reader)
		if rerr != nil && rerr != io.EOF {
			return nil, stats, fmt.Errorf("error reading file: %w", rerr)
		}
		atEOF := rerr == io.EOF

		// The limit flags truncation only when a further contentful line
		// actually exists past it.
		if (oversized || len(line) > 0) && stats.LinesRead >= MaxLines {
			stats.Truncated = true
			break
		}

		switch {
		case oversized:
			stats.LinesRead++
			stats.Oversized++
		case len(line) > 0:
			stats.LinesRead++
			var raw rawEntry
			if uerr := json.Unmarshal(line, &raw); uerr != nil {
				stats.Malformed++
			} else {
				applyEntry(meta, &raw, seenModels, isAgent)
			}
		}

		if atEOF {
			break
		}
	}

	meta.Models = make([]string, 0, len(seenModels))
	for m := range seenModels {
		meta.Models = append(meta.Models, m)
	}

	return meta, stats, nil
}

// applyEntry folds one decoded line into the running metadata.
func applyEntry(meta *models.SessionMetadata, raw *rawEntry, seenModels map[string]bool, isAgent bool) {
	if raw.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
			if meta.FirstTimestamp.IsZero() || t.Before(meta.FirstTimestamp) {
				meta.FirstTimestamp = t
			}
			if t.After(meta.LastTimestamp) {
				meta.LastTimestamp = t
			}
		}
	}
	if raw.GitBranch != "" && meta.GitBranch == "" {
		meta.GitBranch = raw.GitBranch
	}
	if isAgent && raw.SessionID != "" && meta.ParentSessionID == "" {
		meta.ParentSessionID = raw.SessionID
	}

	switch raw.Type {
	case "user":
		meta.MessageCount++
		if meta.FirstPrompt == "" {
			if text := userText(raw.Message); isMeaningfulPrompt(text) {
				meta.FirstPrompt = truncatePreview(text)
			}
		}
	case "assistant":
		meta.MessageCount++
		var payload assistantPayload
		if err := json.Unmarshal(raw.Message, &payload); err != nil {
			return
		}
		meta.Tokens.Add(payload.Usage.tokens())
		if payload.Model != "" {
			seenModels[payload.Model] = true
		}
		for _, block := range payload.Content {
			if block.Type == "tool_use" && block.Name != "" {
				meta.ToolCounts[block.Name]++
			}
		}
	case "session_end", "summary", "system", "file-history-snapshot", "queue-operation":
		// Internal markers carry nothing beyond the timestamp handled above.
	}
}

// readLine returns the next line without its terminator. Lines longer than
// MaxLineBytes are drained chunk by chunk and reported as oversized with a
// nil payload, so a single pathological line cannot force a huge buffer.
func readLine(r *bufio.Reader) (line []byte, oversized bool, err error) {
	var buf []byte
	for {
		chunk, rerr := r.ReadSlice('\n')
		if !oversized {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineBytes {
				oversized = true
				buf = nil
			}
		}
		switch rerr {
		case nil:
			return trimEOL(buf), oversized, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			return trimEOL(buf), oversized, io.EOF
		default:
			return nil, oversized, rerr
		}
	}
}

func trimEOL(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// userText extracts the text of a user message, handling both the newer
// content-array format and the older plain-string format.
func userText(message json.RawMessage) string {
	if len(message) == 0 {
		return ""
	}
	var arrayForm struct {
		Content []contentBlock `json:"content"`
	}
	if err := json.Unmarshal(message, &arrayForm); err == nil && len(arrayForm.Content) > 0 {
		var sb strings.Builder
		for _, block := range arrayForm.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
				sb.WriteString("\n")
			}
		}
		return strings.TrimSpace(sb.String())
	}
	var stringForm struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(message, &stringForm); err == nil {
		return strings.TrimSpace(stringForm.Content)
	}
	return ""
}

// noiseMarkers open protocol/system lines that are not a real prompt.
var noiseMarkers = []string{
	"<command-name>",
	"<command-message>",
	"<local-command-stdout>",
	"Caveat:",
}

// isMeaningfulPrompt reports whether text looks like something the user
// actually typed, as opposed to slash commands and protocol noise.
func isMeaningfulPrompt(text string) bool {
	if text == "" || strings.HasPrefix(text, "/") {
		return false
	}
	for _, marker := range noiseMarkers {
		if strings.HasPrefix(text, marker) {
			return false
		}
	}
	return !strings.Contains(text, "<local-command-stdout>")
}

func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes-3]) + "..."
}
