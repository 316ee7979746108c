// Package pricing converts token usage into dollar cost. Rates are carried
// in an explicit Table passed to whatever needs costing, so tests and
// future rate changes never touch globals.
package pricing

import "strings"

// Rate is the cost per million tokens for one model family.
type Rate struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheReadPerMTok  float64
	CacheWritePerMTok float64
}

// Table maps model-name fragments to rates. Lookup matches the fragment as
// a substring of the full model identifier, so "opus" covers every
// claude-opus release.
type Table struct {
	rates    map[string]Rate
	fallback Rate
}

// Default returns the published per-MTok rates for the current model
// families. Unknown models cost at the sonnet rate.
func Default() *Table {
	sonnet := Rate{InputPerMTok: 3.0, OutputPerMTok: 15.0, CacheReadPerMTok: 0.30, CacheWritePerMTok: 3.75}
	return &Table{
		rates: map[string]Rate{
			"opus":   {InputPerMTok: 15.0, OutputPerMTok: 75.0, CacheReadPerMTok: 1.50, CacheWritePerMTok: 18.75},
			"sonnet": sonnet,
			"haiku":  {InputPerMTok: 0.80, OutputPerMTok: 4.0, CacheReadPerMTok: 0.08, CacheWritePerMTok: 1.0},
		},
		fallback: sonnet,
	}
}

// RateFor returns the rate for a model identifier.
func (t *Table) RateFor(model string) Rate {
	lower := strings.ToLower(model)
	for fragment, rate := range t.rates {
		if strings.Contains(lower, fragment) {
			return rate
		}
	}
	return t.fallback
}

// Cost prices a token breakdown under the given model's rate.
func (t *Table) Cost(model string, input, output, cacheRead, cacheWrite int64) float64 {
	r := t.RateFor(model)
	const mtok = 1_000_000.0
	return float64(input)/mtok*r.InputPerMTok +
		float64(output)/mtok*r.OutputPerMTok +
		float64(cacheRead)/mtok*r.CacheReadPerMTok +
		float64(cacheWrite)/mtok*r.CacheWritePerMTok
}
