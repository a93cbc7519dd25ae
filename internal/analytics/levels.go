package analytics

import (
	"math"
	"sort"
)

// Levels holds support/resistance levels sorted by proximity to the reference
// price, nearest first.
type Levels struct {
	Supports    []float64 `json:"supports"`
	Resistances []float64 `json:"resistances"`
}

// SupportResistance finds up to n support levels below currentPrice and up to
// n resistance levels above it. Candidates come from 3-point local extrema of
// the high/low series; when too few extrema exist, percentile levels of the
// window stand in. Degenerate input returns empty slices.
func SupportResistance(highs, lows []float64, currentPrice float64, n int) Levels {
	if n <= 0 {
		n = 2
	}
	if currentPrice <= 0 || len(highs) < 3 || len(lows) < 3 {
		return Levels{}
	}

	resistanceCandidates := localMaxima(highs)
	supportCandidates := localMinima(lows)

	// Too few swing points: fall back to percentile levels of the window
	if len(resistanceCandidates) < n {
		resistanceCandidates = append(resistanceCandidates,
			percentile(highs, 90), percentile(highs, 75))
	}
	if len(supportCandidates) < n {
		supportCandidates = append(supportCandidates,
			percentile(lows, 10), percentile(lows, 25))
	}

	return Levels{
		Supports:    closestLevels(supportCandidates, currentPrice, n, false),
		Resistances: closestLevels(resistanceCandidates, currentPrice, n, true),
	}
}

// NearestSupport returns the closest support below price, or 0 when none exists
func (l Levels) NearestSupport() float64 {
	if len(l.Supports) == 0 {
		return 0
	}
	return l.Supports[0]
}

// NearestResistance returns the closest resistance above price, or 0 when none exists
func (l Levels) NearestResistance() float64 {
	if len(l.Resistances) == 0 {
		return 0
	}
	return l.Resistances[0]
}

func localMaxima(series []float64) []float64 {
	var out []float64
	for i := 1; i < len(series)-1; i++ {
		if series[i] > series[i-1] && series[i] > series[i+1] {
			out = append(out, series[i])
		}
	}
	return out
}

func localMinima(series []float64) []float64 {
	var out []float64
	for i := 1; i < len(series)-1; i++ {
		if series[i] < series[i-1] && series[i] < series[i+1] {
			out = append(out, series[i])
		}
	}
	return out
}

// closestLevels keeps candidates strictly on one side of price (above when
// above is true), deduplicates, and returns the n nearest sorted by proximity.
func closestLevels(candidates []float64, price float64, n int, above bool) []float64 {
	seen := make(map[float64]bool)
	var filtered []float64
	for _, c := range candidates {
		if c <= 0 || seen[c] {
			continue
		}
		if above && c <= price {
			continue
		}
		if !above && c >= price {
			continue
		}
		seen[c] = true
		filtered = append(filtered, c)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return math.Abs(filtered[i]-price) < math.Abs(filtered[j]-price)
	})

	if len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered
}
