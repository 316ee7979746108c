package analytics

import (
	"math"
	"sort"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const (
	anomalyMinSessions = 10
	warningZ           = 2.0
	criticalZ          = 3.0
)

// DetectAnomalies flags sessions whose token totals are statistical
// outliers against the population. Fewer than anomalyMinSessions sessions,
// or a population with zero variance, yields no anomalies. Results sort by
// severity first, then by descending |z|.
func DetectAnomalies(sessions []models.SessionMetadata) []Anomaly {
	if len(sessions) < anomalyMinSessions {
		return nil
	}

	totals := make([]float64, len(sessions))
	var sum float64
	for i := range sessions {
		totals[i] = float64(sessions[i].Tokens.Total())
		sum += totals[i]
	}
	mean := sum / float64(len(totals))

	var variance float64
	for _, v := range totals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(totals))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for i := range sessions {
		z := (totals[i] - mean) / stddev
		abs := math.Abs(z)
		if abs <= warningZ {
			continue
		}
		severity := SeverityWarning
		if abs > criticalZ {
			severity = SeverityCritical
		}
		anomalies = append(anomalies, Anomaly{
			SessionID: sessions[i].SessionID,
			Tokens:    sessions[i].Tokens.Total(),
			ZScore:    z,
			Severity:  severity,
		})
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return anomalies[i].Severity > anomalies[j].Severity
		}
		return math.Abs(anomalies[i].ZScore) > math.Abs(anomalies[j].ZScore)
	})
	return anomalies
}
