package analytics

import (
	"fmt"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
)

const (
	peakConcentration  = 0.30
	opusShareThreshold = 0.20
	costPremiumFactor  = 1.5
	baselinePerMTok    = 3.0 // sonnet input rate, the reference for premium
	risingCostPct      = 20.0
	risingConfidence   = 0.5
	weekendShareFloor  = 0.10
	lowConfidence      = 0.3
)

// GenerateInsights evaluates a fixed, ordered rule set against the computed
// analytics. Each rule contributes at most one insight and the evaluation
// order is the output order. Messages render through the user-configurable
// mustache template.
func GenerateInsights(template string, trends TrendsData, patterns UsagePatterns, forecast ForecastData) []Insight {
	var insights []Insight
	add := func(title, detail, metric string) {
		insights = append(insights, render(template, title, detail, metric))
	}

	// Peak-hour concentration.
	if hour, share := topHourShare(patterns.HourHistogram); share > peakConcentration {
		add("Concentrated usage",
			fmt.Sprintf("%d%% of sessions start in the %02d:00 hour", int(share*100), hour),
			fmt.Sprintf("%.0f%%", share*100))
	}

	// Expensive model share.
	if share := modelFamilyShare(patterns.ModelTokenShare, "opus"); share > opusShareThreshold {
		add("Heavy opus usage",
			fmt.Sprintf("opus models account for %d%% of tokens", int(share*100)),
			fmt.Sprintf("%.0f%%", share*100))
	}

	// Cost premium over the baseline rate.
	if premium := costPremium(patterns); premium > costPremiumFactor {
		add("High cost per token",
			fmt.Sprintf("effective cost is %.1fx the baseline rate", premium),
			fmt.Sprintf("%.1fx", premium))
	}

	// Rising cost trend.
	if forecast.Available && forecast.Direction == TrendUp &&
		forecast.ChangePct*forecastHorizon > risingCostPct &&
		forecast.Confidence > risingConfidence {
		add("Rising usage",
			fmt.Sprintf("token usage is growing about %s tokens/day", humanize.Comma(int64(forecast.Slope))),
			fmt.Sprintf("%.1f%%/day", forecast.ChangePct))
	}

	// Weekend share.
	if share, ok := weekendShare(patterns.WeekdayHistogram); ok && share < weekendShareFloor {
		add("Weekday-only pattern",
			fmt.Sprintf("only %d%% of sessions happen on weekends", int(share*100)),
			fmt.Sprintf("%.0f%%", share*100))
	}

	// Low forecast confidence.
	if forecast.Available && forecast.Confidence < lowConfidence {
		add("Unpredictable usage",
			fmt.Sprintf("forecast confidence is low (R² = %.2f)", forecast.R2),
			fmt.Sprintf("%.2f", forecast.R2))
	}

	return insights
}

func render(template, title, detail, metric string) Insight {
	in := Insight{Title: title, Detail: detail, Metric: metric}
	msg, err := mustache.Render(template, map[string]any{
		"title":      title,
		"detail":     detail,
		"metric":     metric,
		"has_metric": metric != "",
	})
	if err != nil {
		// A broken custom template still yields a usable message.
		msg = title + ": " + detail
	}
	in.Message = strings.TrimSpace(msg)
	return in
}

func topHourShare(hist [24]int) (hour int, share float64) {
	var total, best int
	for h, c := range hist {
		total += c
		if c > best {
			best = c
			hour = h
		}
	}
	if total == 0 {
		return 0, 0
	}
	return hour, float64(best) / float64(total)
}

func modelFamilyShare(shares map[string]float64, family string) float64 {
	var sum float64
	for model, share := range shares {
		if strings.Contains(strings.ToLower(model), family) {
			sum += share
		}
	}
	return sum
}

// costPremium compares the effective dollars per million tokens against the
// baseline rate.
func costPremium(patterns UsagePatterns) float64 {
	var tokens int64
	for _, b := range patterns.BillingBlocks {
		tokens += b.Tokens
	}
	if tokens == 0 || patterns.TotalCost == 0 {
		return 0
	}
	perMTok := patterns.TotalCost / (float64(tokens) / 1_000_000.0)
	return perMTok / baselinePerMTok
}

func weekendShare(hist [7]int) (share float64, ok bool) {
	var total int
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0, false
	}
	weekend := hist[0] + hist[6] // Sunday, Saturday
	return float64(weekend) / float64(total), true
}
