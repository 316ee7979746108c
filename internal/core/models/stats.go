package models

// DailyActivity is one day of the aggregate activity series from the
// stats cache file.
type DailyActivity struct {
	Date         string `json:"date"` // YYYY-MM-DD
	SessionCount int    `json:"session_count"`
	MessageCount int    `json:"message_count"`
	TotalTokens  int64  `json:"total_tokens"`
}

// StatsCache is the parsed aggregate usage file written by the assistant
// tool (stats-cache.json). Replaced wholesale on every reload.
type StatsCache struct {
	TotalSessions int                   `json:"total_sessions"`
	TotalMessages int                   `json:"total_messages"`
	ModelUsage    map[string]TokenUsage `json:"model_usage"`
	DailyActivity []DailyActivity       `json:"daily_activity"`
}

// Clone returns a deep copy for snapshot accessors.
func (s *StatsCache) Clone() *StatsCache {
	if s == nil {
		return nil
	}
	cp := *s
	if len(s.ModelUsage) > 0 {
		cp.ModelUsage = make(map[string]TokenUsage, len(s.ModelUsage))
		for k, v := range s.ModelUsage {
			cp.ModelUsage[k] = v
		}
	}
	if len(s.DailyActivity) > 0 {
		cp.DailyActivity = make([]DailyActivity, len(s.DailyActivity))
		copy(cp.DailyActivity, s.DailyActivity)
	}
	return &cp
}
