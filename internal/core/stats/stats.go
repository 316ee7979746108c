// Package stats reads the aggregate usage counters that the CLI maintains
// in stats-cache.json. The file is rewritten in place by another process,
// so a read can catch it mid-write; loads retry a few times before giving
// up on a malformed payload.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/errs"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const (
	attempts   = 3
	retryDelay = 250 * time.Millisecond
)

// rawStats mirrors the on-disk shape of stats-cache.json.
type rawStats struct {
	TotalSessions int                     `json:"totalSessions"`
	TotalMessages int                     `json:"totalMessages"`
	ModelUsage    map[string]rawModelUse  `json:"modelUsage"`
	DailyActivity map[string]rawDailyStat `json:"dailyActivity"`
}

type rawModelUse struct {
	InputTokens         int64 `json:"inputTokens"`
	OutputTokens        int64 `json:"outputTokens"`
	CacheReadTokens     int64 `json:"cacheReadInputTokens"`
	CacheCreationTokens int64 `json:"cacheCreationInputTokens"`
}

type rawDailyStat struct {
	SessionCount int   `json:"sessionCount"`
	MessageCount int   `json:"messageCount"`
	TotalTokens  int64 `json:"totalTokens"`
}

// Load reads and decodes the stats file at path. A transiently unreadable
// or half-written file is retried with a constant delay; each attempt
// re-reads the whole file. A missing file returns fs.ErrNotExist unwrapped
// so callers can treat it as informational.
func Load(ctx context.Context, path string) (*models.StatsCache, error) {
	var result *models.StatsCache

	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Not transient, no point retrying.
				return err
			}
			return retry.RetryableError(err)
		}

		var raw rawStats
		if err := json.Unmarshal(data, &raw); err != nil {
			return retry.RetryableError(
				errs.New(errs.KindParse, "decode stats", path,
					fmt.Errorf("malformed stats file: %w", err)))
		}

		result = fromRaw(&raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func fromRaw(raw *rawStats) *models.StatsCache {
	sc := &models.StatsCache{
		TotalSessions: raw.TotalSessions,
		TotalMessages: raw.TotalMessages,
		ModelUsage:    make(map[string]models.TokenUsage, len(raw.ModelUsage)),
	}
	for model, u := range raw.ModelUsage {
		sc.ModelUsage[model] = models.TokenUsage{
			Input:      u.InputTokens,
			Output:     u.OutputTokens,
			CacheRead:  u.CacheReadTokens,
			CacheWrite: u.CacheCreationTokens,
		}
	}

	// Daily activity is keyed by date string on disk; the series is sorted
	// chronologically for consumers.
	for date, d := range raw.DailyActivity {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		sc.DailyActivity = append(sc.DailyActivity, models.DailyActivity{
			Date:         date,
			SessionCount: d.SessionCount,
			MessageCount: d.MessageCount,
			TotalTokens:  d.TotalTokens,
		})
	}
	sort.Slice(sc.DailyActivity, func(i, j int) bool {
		return sc.DailyActivity[i].Date < sc.DailyActivity[j].Date
	})
	return sc
}
