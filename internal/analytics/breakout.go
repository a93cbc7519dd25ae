package analytics

import (
	"math"

	"straddle-trading-bot/internal/market"
)

// Breakout directions
const (
	BreakoutUp   = "UP"
	BreakoutDown = "DOWN"
)

const (
	breakoutBandPeriod  = 20
	breakoutBandWidth   = 2.0
	breakoutATRPeriod   = 14
	breakoutRSIPeriod   = 14
	breakoutSqueezePct  = 1.5
	breakoutVolumeSpike = 2.0
)

// BreakoutSignal is an ephemeral assessment of a directional price move: which
// way the price escaped the recent channel, how convinced the indicators are,
// and which of them fired. Produced per cycle from the latest kline window and
// never persisted.
type BreakoutSignal struct {
	Direction     string  `json:"direction"`
	Price         float64 `json:"price"`
	Confidence    float64 `json:"confidence"`
	VolumeSpike   bool    `json:"volume_spike"`
	RSIDivergence bool    `json:"rsi_divergence"`
	MACDCrossover bool    `json:"macd_crossover"`
	BBSqueeze     bool    `json:"bb_squeeze"`
}

// DetectBreakout classifies the current price against the Bollinger channel of
// the recent window. Returns nil while the price stays inside the channel or
// when history is too short. Confidence blends the move size in ATR units with
// the supporting indicator flags, clamped to [0,1]; momentum divergence
// against the move lowers it.
func DetectBreakout(klines []market.Kline, currentPrice float64) *BreakoutSignal {
	if len(klines) < breakoutBandPeriod+breakoutRSIPeriod || currentPrice <= 0 {
		return nil
	}

	bands := BollingerBands(klines, breakoutBandPeriod, breakoutBandWidth)
	if bands.Middle <= 0 {
		return nil
	}

	var direction string
	switch {
	case currentPrice > bands.Upper:
		direction = BreakoutUp
	case currentPrice < bands.Lower:
		direction = BreakoutDown
	default:
		return nil
	}

	signal := &BreakoutSignal{
		Direction: direction,
		Price:     currentPrice,
	}

	volumes := make([]float64, len(klines))
	for i, k := range klines {
		volumes[i] = k.Volume
	}
	signal.VolumeSpike = RelativeVolume(volumes) >= breakoutVolumeSpike

	// Momentum fading against the direction of the move
	rsiNow := RSI(klines, breakoutRSIPeriod)
	rsiPrev := RSI(klines[:len(klines)-3], breakoutRSIPeriod)
	switch direction {
	case BreakoutUp:
		signal.RSIDivergence = rsiNow < rsiPrev
	case BreakoutDown:
		signal.RSIDivergence = rsiNow > rsiPrev
	}

	macd := MACD(klines, 12, 26, 9)
	signal.MACDCrossover = (direction == BreakoutUp && macd.Histogram > 0) ||
		(direction == BreakoutDown && macd.Histogram < 0)

	// A narrow channel before the move marks a volatility squeeze release
	preBands := BollingerBands(klines[:len(klines)-1], breakoutBandPeriod, breakoutBandWidth)
	if preBands.Middle > 0 {
		widthPct := (preBands.Upper - preBands.Lower) / preBands.Middle * 100
		signal.BBSqueeze = widthPct < breakoutSqueezePct
	}

	confidence := 0.3
	if atr := ATR(klines, breakoutATRPeriod); atr > 0 {
		confidence += math.Min(math.Abs(currentPrice-bands.Middle)/(4*atr), 0.3)
	}
	if signal.VolumeSpike {
		confidence += 0.1
	}
	if signal.MACDCrossover {
		confidence += 0.1
	}
	if signal.BBSqueeze {
		confidence += 0.1
	}
	if signal.RSIDivergence {
		confidence -= 0.1
	}
	signal.Confidence = math.Min(math.Max(confidence, 0), 1)

	return signal
}
