// Package analytics computes usage analytics over an immutable snapshot of
// session metadata. Every function here is pure: input slices are never
// mutated and no state survives between calls. The composition order is
// trends, then forecast, then patterns, then insights and anomalies.
package analytics

import "time"

// DailyBucket is one local calendar day of aggregated activity.
type DailyBucket struct {
	Date     string // 2006-01-02 in the grouping location
	Sessions int
	Messages int
	Tokens   int64
}

// TrendsData is the time-series view of a snapshot.
type TrendsData struct {
	Daily            []DailyBucket
	HourHistogram    [24]int
	WeekdayHistogram [7]int // Sunday = 0
	// ModelDaily aligns per-model daily token totals to the Daily date axis.
	ModelDaily map[string][]int64
	// SkippedNoTimestamp counts sessions excluded for missing timestamps.
	SkippedNoTimestamp int
}

// TrendDirection classifies the forecast slope.
type TrendDirection int

const (
	TrendStable TrendDirection = iota
	TrendUp
	TrendDown
)

func (d TrendDirection) String() string {
	switch d {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "stable"
	}
}

// ForecastData is the result of regressing daily token totals against a
// zero-based day index. When Available is false only Reason is meaningful
// and Confidence is zero.
type ForecastData struct {
	Available bool
	Reason    string

	Slope      float64
	Intercept  float64
	R2         float64
	Confidence float64 // equals R2 when available

	Direction TrendDirection
	ChangePct float64 // per-day change relative to the intercept magnitude

	// Projected is the 30-day extrapolation, clamped at zero.
	Projected []float64
}

// BillingBlock is one fixed 5-hour UTC accounting window with activity.
type BillingBlock struct {
	Start    time.Time
	Sessions int
	Tokens   int64
	Cost     float64
}

// UsagePatterns captures behavioral structure in the snapshot.
type UsagePatterns struct {
	HourHistogram    [24]int
	WeekdayHistogram [7]int
	Heatmap          [7][24]int // weekday x hour session counts

	// ModelTokenShare attributes each session's tokens evenly across the
	// models it used, then normalizes to a 0..1 share per model.
	ModelTokenShare map[string]float64
	MostUsedModel   string

	// PeakHours are hours whose session count exceeds 80% of the per-hour
	// mean.
	PeakHours []int

	// LongestChain is the duration-weighted critical path through the
	// agent-session parent links.
	LongestChain        []string
	LongestChainSeconds float64

	BillingBlocks []BillingBlock
	TotalCost     float64
}

// AnomalySeverity ranks a flagged session.
type AnomalySeverity int

const (
	SeverityWarning  AnomalySeverity = iota // |z| > 2
	SeverityCritical                        // |z| > 3
)

func (s AnomalySeverity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// Anomaly is one session whose token count is a population outlier.
type Anomaly struct {
	SessionID string
	Tokens    int64
	ZScore    float64
	Severity  AnomalySeverity
}

// Insight is one rendered observation about the snapshot.
type Insight struct {
	Title   string
	Detail  string
	Metric  string
	Message string // rendered from the configured template
}
