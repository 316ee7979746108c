package analytics

import (
	"fmt"
	"math"
)

const (
	forecastMinDays   = 7
	forecastHorizon   = 30
	stableSlopeRatio  = 0.01
	percentMultiplier = 100.0
)

// ForecastUsage fits an ordinary least-squares line through daily token
// totals indexed from day zero. Below forecastMinDays distinct days the
// result is unavailable with a reason instead of an extrapolation from
// noise.
func ForecastUsage(trends TrendsData) ForecastData {
	n := len(trends.Daily)
	if n < forecastMinDays {
		return ForecastData{
			Available: false,
			Reason: fmt.Sprintf("need at least %d days of activity, have %d",
				forecastMinDays, n),
		}
	}

	// x is the zero-based day index, y the day's token total.
	var sumX, sumY, sumXY, sumXX float64
	for i, day := range trends.Daily {
		x := float64(i)
		y := float64(day.Tokens)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return ForecastData{Available: false, Reason: "degenerate day index"}
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	// R^2 = 1 - SS_res/SS_tot, defined as 0 when the series has no
	// variance.
	meanY := sumY / fn
	var ssRes, ssTot float64
	for i, day := range trends.Daily {
		y := float64(day.Tokens)
		fit := intercept + slope*float64(i)
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - meanY) * (y - meanY)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	fd := ForecastData{
		Available:  true,
		Slope:      slope,
		Intercept:  intercept,
		R2:         r2,
		Confidence: r2,
	}

	switch {
	case math.Abs(slope) < stableSlopeRatio*math.Abs(intercept):
		fd.Direction = TrendStable
	case slope > 0:
		fd.Direction = TrendUp
	default:
		fd.Direction = TrendDown
	}
	if intercept != 0 {
		fd.ChangePct = slope / math.Abs(intercept) * percentMultiplier
	}

	fd.Projected = make([]float64, forecastHorizon)
	for d := 0; d < forecastHorizon; d++ {
		projected := intercept + slope*float64(n+d)
		if projected < 0 {
			projected = 0
		}
		fd.Projected[d] = projected
	}
	return fd
}
