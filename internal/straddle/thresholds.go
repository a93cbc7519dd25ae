package straddle

import (
	"fmt"
	"math"
)

// Volatility regimes
const (
	RegimeLow    = "low"
	RegimeMedium = "medium"
	RegimeHigh   = "high"
)

// Regime calibration: scale factor applied to the base volatility and the
// clamp band for the short-horizon buy offset (percent).
type regimeParams struct {
	scale  float64
	minPct float64
	maxPct float64
}

var regimes = map[string]regimeParams{
	RegimeLow:    {scale: 150, minPct: 0.3, maxPct: 1.0},
	RegimeMedium: {scale: 120, minPct: 0.5, maxPct: 2.0},
	RegimeHigh:   {scale: 100, minPct: 0.8, maxPct: 3.0},
}

// Horizon multipliers: medium and long offsets are exactly 2x and 3x the
// short offset. Within a horizon the sell offset is 3x the buy offset.
const (
	mediumHorizonRatio = 2.0
	longHorizonRatio   = 3.0
	sellToBuyRatio     = 3.0
	maxBuyOffsetPct    = 25.0
	maxSellOffsetPct   = 30.0
)

// Fallback offsets used when the calculation produces a non-finite value
var (
	fallbackBuyPcts  = [3]float64{1.0, 1.5, 2.0}
	fallbackSellPcts = [3]float64{2.0, 3.0, 4.0}
)

// HorizonLevels is one horizon's bracket: a buy entry above the current price
// and a sell entry below it
type HorizonLevels struct {
	Buy     float64 `json:"buy"`
	Sell    float64 `json:"sell"`
	BuyPct  float64 `json:"buy_pct"`
	SellPct float64 `json:"sell_pct"`
}

// EntryLevels carries bracket prices for all three horizons plus the metadata
// behind them
type EntryLevels struct {
	Short    HorizonLevels `json:"short"`
	Medium   HorizonLevels `json:"medium"`
	Long     HorizonLevels `json:"long"`
	Regime   string        `json:"regime"`
	BaseVol  float64       `json:"base_vol"`
	BasePct  float64       `json:"base_pct"`
	Fallback bool          `json:"fallback"`
}

// CalculateEntryLevels derives bracket entry prices from the current price and
// three volatility estimates (stddev of log returns over short/medium/long
// windows). The minimum of the three is the conservative base; the average
// picks the regime. Guarantees buy > currentPrice > sell on every horizon.
func CalculateEntryLevels(currentPrice, shortVol, mediumVol, longVol float64) (*EntryLevels, error) {
	if currentPrice <= 0 {
		return nil, fmt.Errorf("current price must be positive, got %f", currentPrice)
	}

	// Negative estimates are measurement noise, not signal
	shortVol = math.Max(shortVol, 0)
	mediumVol = math.Max(mediumVol, 0)
	longVol = math.Max(longVol, 0)

	baseVol := math.Min(shortVol, math.Min(mediumVol, longVol))
	avgVol := (shortVol + mediumVol + longVol) / 3

	regime := classifyRegime(avgVol)
	params := regimes[regime]

	basePct := clamp(baseVol*100*params.scale/100, params.minPct, params.maxPct)

	levels := &EntryLevels{
		Regime:  regime,
		BaseVol: baseVol,
		BasePct: basePct,
	}

	ratios := [3]float64{1, mediumHorizonRatio, longHorizonRatio}
	horizons := [3]*HorizonLevels{&levels.Short, &levels.Medium, &levels.Long}

	for i, ratio := range ratios {
		buyPct := clamp(basePct*ratio, params.minPct, maxBuyOffsetPct)
		sellPct := clamp(buyPct*sellToBuyRatio, params.minPct, maxSellOffsetPct)

		horizons[i].BuyPct = buyPct
		horizons[i].SellPct = sellPct
		horizons[i].Buy = currentPrice * (1 + buyPct/100)
		horizons[i].Sell = currentPrice * (1 - sellPct/100)
	}

	if !levels.finite() {
		// Should not happen with clamped inputs; fixed offsets keep the
		// engine running rather than stalling the cycle.
		for i := range horizons {
			horizons[i].BuyPct = fallbackBuyPcts[i]
			horizons[i].SellPct = fallbackSellPcts[i]
			horizons[i].Buy = currentPrice * (1 + fallbackBuyPcts[i]/100)
			horizons[i].Sell = currentPrice * (1 - fallbackSellPcts[i]/100)
		}
		levels.Fallback = true
	}

	// Post-hoc bracket sanity: buy strictly above, sell strictly below
	for i := range horizons {
		if horizons[i].Buy <= currentPrice {
			horizons[i].BuyPct = params.minPct
			horizons[i].Buy = currentPrice * (1 + params.minPct/100)
		}
		if horizons[i].Sell >= currentPrice || horizons[i].Sell <= 0 {
			horizons[i].SellPct = params.minPct
			horizons[i].Sell = currentPrice * (1 - params.minPct/100)
		}
	}

	return levels, nil
}

func (e *EntryLevels) finite() bool {
	for _, h := range []HorizonLevels{e.Short, e.Medium, e.Long} {
		for _, v := range []float64{h.Buy, h.Sell, h.BuyPct, h.SellPct} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func classifyRegime(avgVol float64) string {
	switch {
	case avgVol < 0.005:
		return RegimeLow
	case avgVol < 0.02:
		return RegimeMedium
	default:
		return RegimeHigh
	}
}

// Breakout directions
const (
	DirectionUp   = "UP"
	DirectionDown = "DOWN"
)

// PositionParams are take-profit/stop-loss levels for an activated trade
type PositionParams struct {
	EntryPrice float64 `json:"entry_price"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	Direction  string  `json:"direction"`
}

// CalculatePositionParams computes TP/SL around an entry. For UP the take
// profit sits above the entry and the stop below; DOWN is the inverse.
func CalculatePositionParams(entryPrice, tpPct, slPct float64, direction string) (*PositionParams, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price must be positive, got %f", entryPrice)
	}
	if tpPct <= 0 || slPct <= 0 {
		return nil, fmt.Errorf("tp/sl percentages must be positive, got %f / %f", tpPct, slPct)
	}

	params := &PositionParams{EntryPrice: entryPrice, Direction: direction}

	switch direction {
	case DirectionUp:
		params.TakeProfit = entryPrice * (1 + tpPct/100)
		params.StopLoss = entryPrice * (1 - slPct/100)
	case DirectionDown:
		params.TakeProfit = entryPrice * (1 - tpPct/100)
		params.StopLoss = entryPrice * (1 + slPct/100)
	default:
		return nil, fmt.Errorf("invalid direction %q", direction)
	}

	return params, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
