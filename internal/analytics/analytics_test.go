package analytics

import (
	"math"
	"testing"

	"straddle-trading-bot/internal/market"
)

// floatEquals compares two floats with tolerance
func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// ============================================================================
// TEST: Volatility
// ============================================================================

func TestVolatility_DegenerateInput(t *testing.T) {
	if got := Volatility(nil); got != 0 {
		t.Errorf("Expected 0 for nil prices, got %f", got)
	}
	if got := Volatility([]float64{100}); got != 0 {
		t.Errorf("Expected 0 for single price, got %f", got)
	}
	if got := Volatility([]float64{100, 100, 100}); got != 0 {
		t.Errorf("Expected 0 for constant series, got %f", got)
	}
}

func TestVolatility_AlternatingSeries(t *testing.T) {
	prices := []float64{100, 101, 99, 102, 98, 103, 97, 104, 96, 105}

	sigma := Volatility(prices)
	if sigma <= 0 {
		t.Fatalf("Expected non-zero volatility, got %f", sigma)
	}

	// Recompute by hand: stddev of the 9 log returns
	returns := make([]float64, 0, 9)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	expected := math.Sqrt(variance / float64(len(returns)-1))

	if !floatEquals(sigma, expected, 1e-12) {
		t.Errorf("Expected volatility %f, got %f", expected, sigma)
	}
}

func TestVolatility_SkipsNonPositivePrices(t *testing.T) {
	clean := Volatility([]float64{100, 102, 101})
	dirty := Volatility([]float64{100, 0, 102, -5, 101})
	if clean <= 0 || dirty <= 0 {
		t.Fatal("Expected non-zero volatility for both series")
	}
}

// ============================================================================
// TEST: Dynamic profit thresholds
// ============================================================================

func TestDynamicProfitThresholds_Monotonic(t *testing.T) {
	series := [][]float64{
		{100, 101, 99, 102, 98, 103, 97, 104, 96, 105},
		{50000, 50100, 49900, 50500, 49500},
		{1.0, 1.001, 1.002, 1.001, 1.0, 0.999},
		{10, 15, 8, 20, 5, 25}, // wild swings, should hit the caps
	}
	multipliers := []float64{0.5, 1.0, 2.0, 5.0}

	for _, prices := range series {
		for _, m := range multipliers {
			th := DynamicProfitThresholds(prices, m)
			if th.Small > th.Medium || th.Medium > th.Large {
				t.Errorf("Monotonicity violated for multiplier %.1f: %+v", m, th)
			}
			if th.Small < MinIntradayPct {
				t.Errorf("Small threshold %.4f below floor", th.Small)
			}
			if th.Large > MaxLargePct {
				t.Errorf("Large threshold %.4f above cap", th.Large)
			}
		}
	}
}

func TestDynamicProfitThresholds_FallbackOnShortSeries(t *testing.T) {
	th := DynamicProfitThresholds([]float64{100, 101}, 1.0)
	if !th.Fallback {
		t.Error("Expected fallback flag on short series")
	}
	if th.Small > th.Medium || th.Medium > th.Large {
		t.Errorf("Fallback thresholds not monotonic: %+v", th)
	}
}

func TestDynamicProfitThresholds_MultiplierScales(t *testing.T) {
	prices := []float64{100, 100.2, 99.9, 100.3, 99.8, 100.4}
	low := DynamicProfitThresholds(prices, 0.5)
	high := DynamicProfitThresholds(prices, 3.0)
	if high.Small < low.Small {
		t.Errorf("Higher multiplier should not shrink thresholds: %.4f < %.4f", high.Small, low.Small)
	}
}

// ============================================================================
// TEST: Consecutive move threshold and streaks
// ============================================================================

func TestConsecutiveMoveThreshold_Mapping(t *testing.T) {
	testCases := []struct {
		name     string
		changes  []float64
		expected int
	}{
		{"empty defaults to 3", nil, 3},
		{"high volatility needs 2", []float64{2.5, -3.0, 2.8, -2.2}, 2},
		{"medium volatility needs 3", []float64{1.2, -1.1, 1.3, -1.0}, 3},
		{"low volatility needs 4", []float64{0.6, -0.7, 0.5, -0.6}, 4},
		{"very quiet needs 6", []float64{0.1, -0.2, 0.1, -0.1}, 6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConsecutiveMoveThreshold(tc.changes); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestConsecutiveMoves(t *testing.T) {
	testCases := []struct {
		name     string
		prices   []float64
		expected int
	}{
		{"too short", []float64{100}, 0},
		{"three up", []float64{100, 99, 100, 101, 102}, 3},
		{"two down", []float64{100, 101, 100, 99}, -2},
		{"flat breaks streak", []float64{100, 101, 101}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConsecutiveMoves(tc.prices); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

// ============================================================================
// TEST: Support and resistance
// ============================================================================

func TestSupportResistance_LocalExtrema(t *testing.T) {
	// Highs with peaks at 105 and 107, lows with troughs at 95 and 93
	highs := []float64{100, 105, 101, 103, 107, 102, 104}
	lows := []float64{98, 95, 97, 96, 93, 94, 96}

	levels := SupportResistance(highs, lows, 100, 2)

	if len(levels.Resistances) == 0 {
		t.Fatal("Expected at least one resistance")
	}
	if len(levels.Supports) == 0 {
		t.Fatal("Expected at least one support")
	}

	for _, r := range levels.Resistances {
		if r <= 100 {
			t.Errorf("Resistance %.2f not above price", r)
		}
	}
	for _, s := range levels.Supports {
		if s >= 100 {
			t.Errorf("Support %.2f not below price", s)
		}
	}

	// Nearest first
	if levels.NearestResistance() != 105 {
		t.Errorf("Expected nearest resistance 105, got %.2f", levels.NearestResistance())
	}
	if levels.NearestSupport() != 95 {
		t.Errorf("Expected nearest support 95, got %.2f", levels.NearestSupport())
	}
}

func TestSupportResistance_PercentileFallback(t *testing.T) {
	// Strictly increasing: no local extrema at all
	highs := []float64{100, 101, 102, 103, 104, 105}
	lows := []float64{99, 100, 101, 102, 103, 104}

	levels := SupportResistance(highs, lows, 102, 2)
	if len(levels.Supports) == 0 && len(levels.Resistances) == 0 {
		t.Error("Expected percentile fallback to produce levels")
	}
}

func TestSupportResistance_DegenerateInput(t *testing.T) {
	levels := SupportResistance(nil, nil, 100, 2)
	if len(levels.Supports) != 0 || len(levels.Resistances) != 0 {
		t.Error("Expected empty levels for nil input")
	}

	levels = SupportResistance([]float64{1, 2}, []float64{1, 2}, 0, 2)
	if len(levels.Supports) != 0 || len(levels.Resistances) != 0 {
		t.Error("Expected empty levels for non-positive price")
	}
}

// ============================================================================
// TEST: Volume profile
// ============================================================================

func TestVolumeProfile(t *testing.T) {
	rising := []float64{100, 100.5, 101, 101.5, 102, 102.5, 103, 103.5, 104, 105}
	falling := []float64{105, 104.5, 104, 103.5, 103, 102.5, 102, 101.5, 101, 100}
	quietVolume := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	spikeVolume := []float64{100, 100, 100, 100, 100, 200, 220, 210, 230, 240}

	if got := VolumeProfile(rising, spikeVolume); got != ProfileAccumulation {
		t.Errorf("Expected accumulation, got %s", got)
	}
	if got := VolumeProfile(falling, spikeVolume); got != ProfileDistribution {
		t.Errorf("Expected distribution, got %s", got)
	}
	if got := VolumeProfile(rising, quietVolume); got != ProfileNeutral {
		t.Errorf("Expected neutral on flat volume, got %s", got)
	}
	if got := VolumeProfile(rising[:4], spikeVolume[:4]); got != ProfileNeutral {
		t.Errorf("Expected neutral on short series, got %s", got)
	}
}

// ============================================================================
// TEST: Pattern detection
// ============================================================================

func klinesFromCloses(closes []float64) []market.Kline {
	klines := make([]market.Kline, len(closes))
	for i, c := range closes {
		klines[i] = market.Kline{
			Open:   c,
			High:   c * 1.001,
			Low:    c * 0.999,
			Close:  c,
			Volume: 1000,
		}
	}
	return klines
}

func TestDetectPattern_InsufficientData(t *testing.T) {
	klines := klinesFromCloses([]float64{100, 101, 102})
	if got := DetectPattern(klines); got != PatternInsufficientData {
		t.Errorf("Expected insufficient_data, got %s", got)
	}
}

func TestDetectPattern_BullishTrend(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.8
	}
	got := DetectPattern(klinesFromCloses(closes))
	if got != PatternBullishTrend && got != PatternBullishCrossover {
		t.Errorf("Expected bullish classification, got %s", got)
	}
	if !IsBullishPattern(got) {
		t.Errorf("Expected %s to be bullish", got)
	}
}

func TestDetectPattern_BearishTrend(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 130 - float64(i)*0.8
	}
	got := DetectPattern(klinesFromCloses(closes))
	if !IsBearishPattern(got) {
		t.Errorf("Expected bearish classification, got %s", got)
	}
}

func TestDetectPattern_DoubleTop(t *testing.T) {
	// Flat base, two nearly equal peaks with a dip between
	closes := []float64{
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
		102, 106, 102, 100, 98, 96, 98, 102, 106.2, 102,
		100, 100, 100,
	}
	got := DetectPattern(klinesFromCloses(closes))
	if got != PatternDoubleTop {
		t.Errorf("Expected double_top, got %s", got)
	}
}

// ============================================================================
// TEST: Time of day factor
// ============================================================================

func TestTimeOfDayFactor(t *testing.T) {
	if got := TimeOfDayFactor(15); got != 1.1 {
		t.Errorf("Expected 1.1 during overlap, got %f", got)
	}
	if got := TimeOfDayFactor(3); got != 0.9 {
		t.Errorf("Expected 0.9 in quiet hours, got %f", got)
	}
	if got := TimeOfDayFactor(9); got != 1.0 {
		t.Errorf("Expected 1.0 in normal hours, got %f", got)
	}
}

// ============================================================================
// TEST: Indicators
// ============================================================================

func TestSMA(t *testing.T) {
	klines := klinesFromCloses([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if got := SMA(klines, 4); !floatEquals(got, 8.5, 1e-12) {
		t.Errorf("Expected SMA 8.5 over the last 4 closes, got %f", got)
	}
	if got := SMA(klines, 20); got != 0 {
		t.Errorf("Expected 0 for insufficient history, got %f", got)
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	if got := EMA(klinesFromCloses(closes), 10); !floatEquals(got, 100, 1e-9) {
		t.Errorf("EMA of a constant series must equal the constant, got %f", got)
	}
	if got := EMA(klinesFromCloses(closes[:5]), 10); got != 0 {
		t.Errorf("Expected 0 for insufficient history, got %f", got)
	}
}

func TestMACD_ConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	m := MACD(klinesFromCloses(closes), 12, 26, 9)
	if !floatEquals(m.MACD, 0, 1e-9) || !floatEquals(m.Signal, 0, 1e-9) || !floatEquals(m.Histogram, 0, 1e-9) {
		t.Errorf("MACD of a constant series must be zero, got %+v", m)
	}
}

func TestBollingerBands_ConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	b := BollingerBands(klinesFromCloses(closes), 20, 2.0)
	if !floatEquals(b.Upper, 100, 1e-9) || !floatEquals(b.Middle, 100, 1e-9) || !floatEquals(b.Lower, 100, 1e-9) {
		t.Errorf("Bands around a constant series must collapse to it, got %+v", b)
	}
}

func TestATR_KnownRange(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	// klinesFromCloses sets high/low at +/-0.1%, so every true range is 0.2
	if got := ATR(klinesFromCloses(closes), 14); !floatEquals(got, 0.2, 1e-9) {
		t.Errorf("Expected ATR 0.2, got %f", got)
	}
}

// ============================================================================
// TEST: Breakout detection
// ============================================================================

func TestDetectBreakout_NilInsideChannel(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	if got := DetectBreakout(klinesFromCloses(closes), 100); got != nil {
		t.Errorf("Price on the midline must not signal a breakout, got %+v", got)
	}
}

func TestDetectBreakout_ShortHistory(t *testing.T) {
	closes := []float64{100, 101, 102}
	if got := DetectBreakout(klinesFromCloses(closes), 110); got != nil {
		t.Errorf("Expected nil for short history, got %+v", got)
	}
}

func TestDetectBreakout_UpWithFlags(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	klines := klinesFromCloses(closes)
	// Volume surges on the breakout bars
	for i := len(klines) - 5; i < len(klines); i++ {
		klines[i].Volume = 5000
	}

	signal := DetectBreakout(klines, 110)
	if signal == nil {
		t.Fatal("Price above the channel must signal a breakout")
	}
	if signal.Direction != BreakoutUp {
		t.Errorf("Expected UP, got %s", signal.Direction)
	}
	if signal.Price != 110 {
		t.Errorf("Signal should carry the breakout price, got %f", signal.Price)
	}
	if !signal.VolumeSpike {
		t.Error("Fivefold recent volume should flag a spike")
	}
	if !signal.BBSqueeze {
		t.Error("A flat pre-breakout channel should flag a squeeze")
	}
	if signal.MACDCrossover {
		t.Error("A flat series has no MACD crossover")
	}
	if signal.RSIDivergence {
		t.Error("A flat series has no RSI divergence")
	}
	if signal.Confidence <= 0 || signal.Confidence > 1 {
		t.Errorf("Confidence must stay in (0,1], got %f", signal.Confidence)
	}
}

func TestDetectBreakout_DownDirection(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	signal := DetectBreakout(klinesFromCloses(closes), 90)
	if signal == nil || signal.Direction != BreakoutDown {
		t.Fatalf("Price below the channel must signal DOWN, got %+v", signal)
	}
}
