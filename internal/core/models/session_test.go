package models

import (
	"testing"
	"time"
)

func TestSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		session SessionMetadata
		wantErr bool
	}{
		{
			name: "valid session",
			session: SessionMetadata{
				SessionID:   "abc-123",
				FilePath:    "/home/u/.claude/projects/-tmp-p/abc-123.jsonl",
				ProjectPath: "/tmp/p",
			},
			wantErr: false,
		},
		{
			name: "missing session ID",
			session: SessionMetadata{
				FilePath: "/home/u/.claude/projects/-tmp-p/x.jsonl",
			},
			wantErr: true,
		},
		{
			name: "missing file path",
			session: SessionMetadata{
				SessionID: "abc-123",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenUsage(t *testing.T) {
	u := TokenUsage{Input: 1, Output: 2, CacheRead: 3, CacheWrite: 4}
	if got := u.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}

	u.Add(TokenUsage{Input: 10, CacheWrite: 6})
	if u.Input != 11 || u.CacheWrite != 10 {
		t.Errorf("Add() = %+v", u)
	}
}

func TestSessionDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := SessionMetadata{FirstTimestamp: start, LastTimestamp: start.Add(45 * time.Minute)}
	if got := s.Duration(); got != 45*time.Minute {
		t.Errorf("Duration() = %v, want 45m", got)
	}

	if (&SessionMetadata{FirstTimestamp: start}).Duration() != 0 {
		t.Error("Duration() with missing end should be 0")
	}
}

func TestSessionClone(t *testing.T) {
	orig := &SessionMetadata{
		SessionID:  "s1",
		Models:     []string{"m1"},
		ToolCounts: map[string]int{"Bash": 1},
	}

	cp := orig.Clone()
	cp.Models[0] = "changed"
	cp.ToolCounts["Bash"] = 99

	if orig.Models[0] != "m1" {
		t.Error("Clone shares Models slice")
	}
	if orig.ToolCounts["Bash"] != 1 {
		t.Error("Clone shares ToolCounts map")
	}
}

func TestLoadReportMergeAndSeverity(t *testing.T) {
	a := &LoadReport{SessionsScanned: 2}
	a.Add("sessions", SeverityWarning, "one bad file", "")

	b := &LoadReport{SessionsScanned: 3, StatsLoaded: true}
	b.Add("stats", SeverityError, "stats broken", "check the file")

	a.Merge(b)

	if a.SessionsScanned != 5 {
		t.Errorf("SessionsScanned = %d, want 5", a.SessionsScanned)
	}
	if !a.StatsLoaded {
		t.Error("StatsLoaded not carried by Merge")
	}
	if got := a.MaxSeverity(); got != SeverityError {
		t.Errorf("MaxSeverity() = %v, want error", got)
	}
}

func TestDegradedFromReport(t *testing.T) {
	tests := []struct {
		name string
		prep func(*LoadReport)
		want HealthMode
	}{
		{"empty is healthy", func(r *LoadReport) {}, Healthy},
		{"info stays healthy", func(r *LoadReport) {
			r.Add("stats", SeverityInfo, "no stats yet", "")
		}, Healthy},
		{"warning stays healthy", func(r *LoadReport) {
			r.Add("sessions", SeverityWarning, "one bad file", "")
		}, Healthy},
		{"error degrades", func(r *LoadReport) {
			r.Add("stats", SeverityError, "stats unreadable", "")
		}, PartialData},
		{"fatal is read-only", func(r *LoadReport) {
			r.Add("sessions", SeverityError, "x", "")
			r.Add("store", SeverityFatal, "cannot continue", "")
		}, ReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &LoadReport{}
			tt.prep(r)
			got := DegradedFromReport(r)
			if got.Mode != tt.want {
				t.Errorf("Mode = %v, want %v", got.Mode, tt.want)
			}
			if tt.want == PartialData && len(got.Missing) == 0 {
				t.Error("PartialData should name missing sources")
			}
		})
	}
}
