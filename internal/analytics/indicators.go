package analytics

import (
	"math"

	"straddle-trading-bot/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average over the last period closes
func SMA(klines []market.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		sum += klines[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average seeded with an SMA
func EMA(klines []market.Kline, period int) float64 {
	if len(klines) < period || period <= 0 {
		return 0
	}

	ema := SMA(klines[:period], period)
	multiplier := 2.0 / float64(period+1)

	for i := period; i < len(klines); i++ {
		ema = klines[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// ============================================================================
// RSI
// ============================================================================

// RSI calculates the Relative Strength Index. Returns the neutral 50 when
// history is too short.
func RSI(klines []market.Kline, period int) float64 {
	if len(klines) < period+1 || period <= 0 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD
// ============================================================================

// MACDResult holds MACD indicator values
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the MACD line by walking the series so the signal line is a
// true EMA of MACD values rather than an approximation.
func MACD(klines []market.Kline, fastPeriod, slowPeriod, signalPeriod int) *MACDResult {
	if len(klines) < slowPeriod+signalPeriod {
		return &MACDResult{}
	}

	macdHistory := make([]float64, 0, len(klines)-slowPeriod+1)
	for i := slowPeriod; i <= len(klines); i++ {
		window := klines[:i]
		macdHistory = append(macdHistory, EMA(window, fastPeriod)-EMA(window, slowPeriod))
	}

	macdLine := macdHistory[len(macdHistory)-1]

	signal := meanOf(macdHistory[:signalPeriod])
	multiplier := 2.0 / float64(signalPeriod+1)
	for i := signalPeriod; i < len(macdHistory); i++ {
		signal = macdHistory[i]*multiplier + signal*(1-multiplier)
	}

	return &MACDResult{
		MACD:      macdLine,
		Signal:    signal,
		Histogram: macdLine - signal,
	}
}

// ============================================================================
// BOLLINGER BANDS
// ============================================================================

// BollingerResult holds Bollinger Bands values
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands calculates bands around an SMA midline
func BollingerBands(klines []market.Kline, period int, stdDevMultiplier float64) *BollingerResult {
	if len(klines) < period || period <= 0 {
		return &BollingerResult{}
	}

	middle := SMA(klines, period)

	variance := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		diff := klines[i].Close - middle
		variance += diff * diff
	}
	sd := math.Sqrt(variance / float64(period))

	return &BollingerResult{
		Upper:  middle + sd*stdDevMultiplier,
		Middle: middle,
		Lower:  middle - sd*stdDevMultiplier,
	}
}

// ============================================================================
// ATR
// ============================================================================

// ATR calculates the Average True Range
func ATR(klines []market.Kline, period int) float64 {
	if len(klines) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trSum += tr
	}
	return trSum / float64(period)
}
