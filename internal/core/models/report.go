package models

import "fmt"

// Severity ranks a load-report entry. Fatal entries flip the store into
// ReadOnly; Error entries into PartialData; Info covers expected conditions
// such as a missing optional file.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ReportEntry is one recorded outcome of a fallible sub-operation.
type ReportEntry struct {
	Source     string
	Severity   Severity
	Message    string
	Suggestion string
}

// LoadReport aggregates the outcomes of one load or reload operation.
// Sub-operations are isolated: each failure becomes an entry, never an
// abort of siblings.
type LoadReport struct {
	Entries         []ReportEntry
	SessionsScanned int
	SessionsFailed  int
	StatsLoaded     bool
	SettingsLoaded  bool
}

// Add records an entry.
func (r *LoadReport) Add(source string, sev Severity, message, suggestion string) {
	r.Entries = append(r.Entries, ReportEntry{
		Source:     source,
		Severity:   sev,
		Message:    message,
		Suggestion: suggestion,
	})
}

// Merge folds a sub-operation report into r.
func (r *LoadReport) Merge(other *LoadReport) {
	if other == nil {
		return
	}
	r.Entries = append(r.Entries, other.Entries...)
	r.SessionsScanned += other.SessionsScanned
	r.SessionsFailed += other.SessionsFailed
	r.StatsLoaded = r.StatsLoaded || other.StatsLoaded
	r.SettingsLoaded = r.SettingsLoaded || other.SettingsLoaded
}

// MaxSeverity returns the highest severity recorded, or SeverityInfo for an
// empty report.
func (r *LoadReport) MaxSeverity() Severity {
	max := SeverityInfo
	for _, e := range r.Entries {
		if e.Severity > max {
			max = e.Severity
		}
	}
	return max
}

// HealthMode is the store-wide health classification.
type HealthMode int

const (
	Healthy HealthMode = iota
	PartialData
	ReadOnly
)

func (m HealthMode) String() string {
	switch m {
	case Healthy:
		return "healthy"
	case PartialData:
		return "partial-data"
	case ReadOnly:
		return "read-only"
	default:
		return fmt.Sprintf("health(%d)", int(m))
	}
}

// DegradedState is recomputed from the latest LoadReport after every load
// or reload.
type DegradedState struct {
	Mode    HealthMode
	Missing []string // sources that failed, for PartialData
	Reason  string
}

// DegradedFromReport derives the store health from a completed report.
func DegradedFromReport(r *LoadReport) DegradedState {
	var missing []string
	var reason string
	mode := Healthy
	for _, e := range r.Entries {
		switch e.Severity {
		case SeverityFatal:
			mode = ReadOnly
			reason = e.Message
		case SeverityError:
			if mode != ReadOnly {
				mode = PartialData
				if reason == "" {
					reason = e.Message
				}
			}
			missing = append(missing, e.Source)
		}
	}
	if mode != PartialData {
		missing = nil
	}
	return DegradedState{Mode: mode, Missing: missing, Reason: reason}
}
