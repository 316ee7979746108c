package analytics

import (
	"sort"
	"time"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/lineage"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/pricing"
)

const (
	peakHourRatio    = 0.8
	billingBlockSpan = 5 * time.Hour
)

// DetectPatterns derives behavioral structure: activity histograms, model
// token shares, peak hours, the longest agent chain, and per-block costs.
// Histograms bucket in loc, the same zone trends group by; billing blocks
// stay in UTC regardless. A session that used N models has its tokens
// split evenly across all N; the approximation is deliberate and matches
// historical reporting.
func DetectPatterns(sessions []models.SessionMetadata, table *pricing.Table, loc *time.Location) UsagePatterns {
	if loc == nil {
		loc = time.Local
	}

	up := UsagePatterns{ModelTokenShare: make(map[string]float64)}

	blocks := make(map[time.Time]*BillingBlock)
	graph := lineage.New()
	var totalTokens float64

	for i := range sessions {
		s := &sessions[i]
		total := s.Tokens.Total()
		totalTokens += float64(total)

		if !s.FirstTimestamp.IsZero() {
			local := s.FirstTimestamp.In(loc)
			up.HourHistogram[local.Hour()]++
			up.WeekdayHistogram[int(local.Weekday())]++
			up.Heatmap[int(local.Weekday())][local.Hour()]++

			start := s.FirstTimestamp.UTC().Truncate(billingBlockSpan)
			b, ok := blocks[start]
			if !ok {
				b = &BillingBlock{Start: start}
				blocks[start] = b
			}
			b.Sessions++
			b.Tokens += total
			b.Cost += sessionCost(s, table)
		}

		if n := len(s.Models); n > 0 {
			per := float64(total) / float64(n)
			for _, m := range s.Models {
				up.ModelTokenShare[m] += per
			}
		}

		graph.Add(s.SessionID, s.Duration().Seconds())
		if s.ParentSessionID != "" {
			graph.Link(s.ParentSessionID, s.SessionID)
		}
	}

	if totalTokens > 0 {
		for m := range up.ModelTokenShare {
			up.ModelTokenShare[m] /= totalTokens
		}
	}
	for m, share := range up.ModelTokenShare {
		if up.MostUsedModel == "" || share > up.ModelTokenShare[up.MostUsedModel] {
			up.MostUsedModel = m
		}
	}

	up.PeakHours = peakHours(up.HourHistogram)

	if graph.Len() > 0 {
		up.LongestChain, up.LongestChainSeconds = graph.CriticalPath()
	}

	for _, b := range blocks {
		up.BillingBlocks = append(up.BillingBlocks, *b)
		up.TotalCost += b.Cost
	}
	sort.Slice(up.BillingBlocks, func(i, j int) bool {
		return up.BillingBlocks[i].Start.Before(up.BillingBlocks[j].Start)
	})

	return up
}

// sessionCost prices a session with its tokens split evenly across the
// models it used. Sessions with no recorded model cost at the fallback
// rate.
func sessionCost(s *models.SessionMetadata, table *pricing.Table) float64 {
	if table == nil {
		return 0
	}
	n := int64(len(s.Models))
	if n == 0 {
		return table.Cost("", s.Tokens.Input, s.Tokens.Output,
			s.Tokens.CacheRead, s.Tokens.CacheWrite)
	}
	var cost float64
	for _, m := range s.Models {
		cost += table.Cost(m, s.Tokens.Input/n, s.Tokens.Output/n,
			s.Tokens.CacheRead/n, s.Tokens.CacheWrite/n)
	}
	return cost
}

// peakHours returns hours whose count exceeds peakHourRatio of the mean
// per-hour count. An all-zero histogram has no peaks.
func peakHours(hist [24]int) []int {
	var sum int
	for _, c := range hist {
		sum += c
	}
	if sum == 0 {
		return nil
	}
	mean := float64(sum) / 24.0
	var peaks []int
	for hour, c := range hist {
		if float64(c) > peakHourRatio*mean {
			peaks = append(peaks, hour)
		}
	}
	return peaks
}
