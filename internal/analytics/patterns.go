package analytics

import (
	"math"

	"straddle-trading-bot/internal/market"
)

// Pattern classifications
const (
	PatternDoubleTop            = "double_top"
	PatternDoubleBottom         = "double_bottom"
	PatternHeadShoulders        = "head_shoulders"
	PatternInverseHeadShoulders = "inverse_head_shoulders"
	PatternBullishTrend         = "bullish_trend"
	PatternBearishTrend         = "bearish_trend"
	PatternBullishCrossover     = "bullish_crossover"
	PatternBearishCrossover     = "bearish_crossover"
	PatternNone                 = "no_clear_pattern"
	PatternInsufficientData     = "insufficient_data"
)

const minPatternBars = 20

// Peaks within this fraction of each other count as equal height
const peakTolerance = 0.02

// DetectPattern makes a best-effort classification of the OHLCV window into a
// small closed set of chart patterns. It needs at least 20 bars; anything less
// reports insufficient_data. Extrema-based patterns are checked before the
// moving-average trend/crossover fallbacks.
func DetectPattern(klines []market.Kline) string {
	if len(klines) < minPatternBars {
		return PatternInsufficientData
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
	}

	peaks := extremaIndexes(highs, true)
	troughs := extremaIndexes(lows, false)

	if p := reversalPattern(highs, lows, peaks, troughs); p != "" {
		return p
	}

	return maPattern(closes)
}

// reversalPattern checks double top/bottom and head-and-shoulders shapes from
// the most recent swing points. Returns "" when nothing matches.
func reversalPattern(highs, lows []float64, peaks, troughs []int) string {
	if len(peaks) >= 3 {
		a, b, c := highs[peaks[len(peaks)-3]], highs[peaks[len(peaks)-2]], highs[peaks[len(peaks)-1]]
		if b > a && b > c && nearEqual(a, c, 0.03) {
			return PatternHeadShoulders
		}
	}
	if len(troughs) >= 3 {
		a, b, c := lows[troughs[len(troughs)-3]], lows[troughs[len(troughs)-2]], lows[troughs[len(troughs)-1]]
		if b < a && b < c && nearEqual(a, c, 0.03) {
			return PatternInverseHeadShoulders
		}
	}
	if len(peaks) >= 2 {
		a, b := highs[peaks[len(peaks)-2]], highs[peaks[len(peaks)-1]]
		if nearEqual(a, b, peakTolerance) && troughBetween(lows, peaks[len(peaks)-2], peaks[len(peaks)-1], math.Min(a, b)) {
			return PatternDoubleTop
		}
	}
	if len(troughs) >= 2 {
		a, b := lows[troughs[len(troughs)-2]], lows[troughs[len(troughs)-1]]
		if nearEqual(a, b, peakTolerance) && peakBetween(highs, troughs[len(troughs)-2], troughs[len(troughs)-1], math.Max(a, b)) {
			return PatternDoubleBottom
		}
	}
	return ""
}

// maPattern classifies trend and crossovers from 5/20 period moving averages
func maPattern(closes []float64) string {
	ma5Now := meanOf(closes[len(closes)-5:])
	ma20Now := meanOf(closes[len(closes)-20:])

	prev := closes[:len(closes)-1]
	ma5Prev := meanOf(prev[len(prev)-5:])
	ma20Prev := meanOf(prev[len(prev)-20:])

	if ma20Now <= 0 || ma20Prev <= 0 {
		return PatternNone
	}

	if ma5Prev <= ma20Prev && ma5Now > ma20Now {
		return PatternBullishCrossover
	}
	if ma5Prev >= ma20Prev && ma5Now < ma20Now {
		return PatternBearishCrossover
	}

	diffPct := (ma5Now - ma20Now) / ma20Now * 100
	if diffPct > 1.0 {
		return PatternBullishTrend
	}
	if diffPct < -1.0 {
		return PatternBearishTrend
	}

	return PatternNone
}

// IsBullishPattern reports whether the classification argues for re-entering
// the asset
func IsBullishPattern(pattern string) bool {
	switch pattern {
	case PatternDoubleBottom, PatternInverseHeadShoulders, PatternBullishTrend, PatternBullishCrossover:
		return true
	}
	return false
}

// IsBearishPattern reports whether the classification argues for reducing
// exposure
func IsBearishPattern(pattern string) bool {
	switch pattern {
	case PatternDoubleTop, PatternHeadShoulders, PatternBearishTrend, PatternBearishCrossover:
		return true
	}
	return false
}

func extremaIndexes(series []float64, maxima bool) []int {
	var out []int
	for i := 1; i < len(series)-1; i++ {
		if maxima && series[i] > series[i-1] && series[i] > series[i+1] {
			out = append(out, i)
		}
		if !maxima && series[i] < series[i-1] && series[i] < series[i+1] {
			out = append(out, i)
		}
	}
	return out
}

func nearEqual(a, b, tolerance float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	return math.Abs(a-b)/math.Max(a, b) <= tolerance
}

// troughBetween requires a meaningful dip between the two peaks
func troughBetween(lows []float64, start, end int, peakLevel float64) bool {
	lowest := math.MaxFloat64
	for i := start; i <= end && i < len(lows); i++ {
		if lows[i] < lowest {
			lowest = lows[i]
		}
	}
	return lowest < peakLevel*(1-peakTolerance)
}

// peakBetween requires a meaningful bounce between the two troughs
func peakBetween(highs []float64, start, end int, troughLevel float64) bool {
	highest := 0.0
	for i := start; i <= end && i < len(highs); i++ {
		if highs[i] > highest {
			highest = highs[i]
		}
	}
	return highest > troughLevel*(1+peakTolerance)
}
