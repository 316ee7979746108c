package analytics

import (
	"sort"
	"time"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const dateLayout = "2006-01-02"

// ComputeTrends groups sessions into local calendar days and builds the
// hour, weekday, and per-model series. Timestamps convert to loc before
// any date arithmetic, so offset and DST boundaries bucket correctly.
// Sessions without a first timestamp are skipped and counted.
func ComputeTrends(sessions []models.SessionMetadata, loc *time.Location) TrendsData {
	if loc == nil {
		loc = time.Local
	}

	td := TrendsData{ModelDaily: make(map[string][]int64)}

	type dayAgg struct {
		sessions int
		messages int
		tokens   int64
		byModel  map[string]int64
	}
	days := make(map[string]*dayAgg)

	for i := range sessions {
		s := &sessions[i]
		if s.FirstTimestamp.IsZero() {
			td.SkippedNoTimestamp++
			continue
		}
		local := s.FirstTimestamp.In(loc)
		date := local.Format(dateLayout)

		agg, ok := days[date]
		if !ok {
			agg = &dayAgg{byModel: make(map[string]int64)}
			days[date] = agg
		}
		total := s.Tokens.Total()
		agg.sessions++
		agg.messages += s.MessageCount
		agg.tokens += total

		td.HourHistogram[local.Hour()]++
		td.WeekdayHistogram[int(local.Weekday())]++

		// Even split across the session's models keeps daily model series
		// consistent with cost attribution elsewhere.
		if n := len(s.Models); n > 0 {
			per := total / int64(n)
			for _, m := range s.Models {
				agg.byModel[m] += per
			}
		}
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	modelSet := make(map[string]bool)
	for _, agg := range days {
		for m := range agg.byModel {
			modelSet[m] = true
		}
	}

	for _, date := range dates {
		agg := days[date]
		td.Daily = append(td.Daily, DailyBucket{
			Date:     date,
			Sessions: agg.sessions,
			Messages: agg.messages,
			Tokens:   agg.tokens,
		})
		for m := range modelSet {
			td.ModelDaily[m] = append(td.ModelDaily[m], agg.byModel[m])
		}
	}

	return td
}
