// Package analytics provides pure, stateless statistical helpers over ordered
// price/volume series (most-recent-last). Every function degrades to a
// documented fallback value on degenerate input instead of returning an error.
package analytics

import (
	"math"
	"sort"
)

// Profit threshold calibration constants (percent)
const (
	MinIntradayPct = 0.5 // Floor under the small threshold
	MaxSmallPct    = 3.0
	MinMediumPct   = 0.8
	MaxMediumPct   = 5.0
	MinLargePct    = 1.2
	MaxLargePct    = 8.0
)

// Fallback thresholds used when the price series is too short to measure
var fallbackThresholds = ProfitThresholds{Small: 0.8, Medium: 1.5, Large: 2.5, Fallback: true}

// ProfitThresholds are the three escalating profit-taking levels (percent)
type ProfitThresholds struct {
	Small    float64 `json:"small"`
	Medium   float64 `json:"medium"`
	Large    float64 `json:"large"`
	Fallback bool    `json:"fallback"`
}

// Volatility returns the standard deviation of successive log returns.
// Fewer than 2 usable points yields 0.
func Volatility(prices []float64) float64 {
	returns := LogReturns(prices)
	if len(returns) < 1 {
		return 0
	}
	return stdDev(returns)
}

// LogReturns computes ln(p[i]/p[i-1]) over the series, skipping non-positive
// prices that would make the logarithm undefined.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] <= 0 || prices[i-1] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

// DynamicProfitThresholds derives small/medium/large profit-taking percentages
// from a blend of the window's range percentage and its return volatility,
// floored at MinIntradayPct and scaled by multiplier. Output is monotonic:
// small <= medium <= large for any fixed multiplier.
func DynamicProfitThresholds(prices []float64, multiplier float64) ProfitThresholds {
	if multiplier <= 0 {
		multiplier = 1.0
	}
	if len(prices) < 3 {
		return fallbackThresholds
	}

	high, low, sum := prices[0], prices[0], 0.0
	for _, p := range prices {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return fallbackThresholds
	}

	rangePct := (high - low) / mean * 100
	volPct := Volatility(prices) * 100

	// Range contributes a quarter of its span, volatility half of its
	// 3-sigma move. The blend stays close to realized intraday swings.
	raw := rangePct*0.25 + volPct*1.5
	if raw < MinIntradayPct {
		raw = MinIntradayPct
	}

	small := clampPct(raw*multiplier, MinIntradayPct, MaxSmallPct)
	medium := clampPct(small*1.6, MinMediumPct, MaxMediumPct)
	large := clampPct(small*2.5, MinLargePct, MaxLargePct)

	// Clamping bands are aligned so this holds, but a calibration change
	// must never break monotonicity.
	if medium < small {
		medium = small
	}
	if large < medium {
		large = medium
	}

	return ProfitThresholds{Small: small, Medium: medium, Large: large}
}

// ConsecutiveMoveThreshold maps the 75th-percentile magnitude of normalized
// changes to a confirmation count. Quieter markets need longer streaks before
// a move is trusted. Empty input yields the middle value 3.
func ConsecutiveMoveThreshold(changes []float64) int {
	if len(changes) == 0 {
		return 3
	}

	magnitudes := make([]float64, len(changes))
	for i, c := range changes {
		magnitudes[i] = math.Abs(c)
	}
	p75 := percentile(magnitudes, 75)

	switch {
	case p75 >= 2.0:
		return 2
	case p75 >= 1.0:
		return 3
	case p75 >= 0.5:
		return 4
	default:
		return 6
	}
}

// ConsecutiveMoves returns the length of the trailing same-direction streak,
// positive for up moves and negative for down moves. Flat closes break the
// streak.
func ConsecutiveMoves(prices []float64) int {
	if len(prices) < 2 {
		return 0
	}

	streak := 0
	for i := len(prices) - 1; i > 0; i-- {
		diff := prices[i] - prices[i-1]
		if diff > 0 {
			if streak < 0 {
				break
			}
			streak++
		} else if diff < 0 {
			if streak > 0 {
				break
			}
			streak--
		} else {
			break
		}
	}
	return streak
}

// Trend labels
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// TrendDirection compares 5 and 20 period moving averages. Series shorter than
// 20 points report neutral.
func TrendDirection(prices []float64) string {
	if len(prices) < 20 {
		return TrendNeutral
	}

	ma5 := meanOf(prices[len(prices)-5:])
	ma20 := meanOf(prices[len(prices)-20:])
	if ma20 <= 0 {
		return TrendNeutral
	}

	diffPct := (ma5 - ma20) / ma20 * 100
	switch {
	case diffPct > 0.5:
		return TrendBullish
	case diffPct < -0.5:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// TimeOfDayFactor scales trading aggressiveness by UTC hour. The US/EU session
// overlap is the most liquid window; the late Asia lull the least.
func TimeOfDayFactor(hourUTC int) float64 {
	switch {
	case hourUTC >= 13 && hourUTC <= 17:
		return 1.1
	case hourUTC >= 0 && hourUTC <= 5:
		return 0.9
	default:
		return 1.0
	}
}

// ============================================================================
// STAT HELPERS
// ============================================================================

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile returns the p-th percentile using linear interpolation
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func clampPct(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
