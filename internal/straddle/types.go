// Package straddle implements the bracket trading engine: it places paired
// buy-above/sell-below entries around the current price, monitors activated
// legs against volatility-scaled profit targets, and rebalances proceeds into
// the most liquid stablecoin.
package straddle

import (
	"time"

	"straddle-trading-bot/internal/analytics"
	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/swap"
)

// CycleStatus describes the outcome of one engine cycle for a symbol
type CycleStatus string

const (
	// StatusNoPosition means no position exists and none was created this cycle
	StatusNoPosition CycleStatus = "NO_POSITION"
	// StatusInitiated means a fresh bracket was created
	StatusInitiated CycleStatus = "INITIATED"
	// StatusMonitoring means activated legs are being watched, no action taken
	StatusMonitoring CycleStatus = "MONITORING"
	// StatusZeroQuantity means the position holds no active exposure this
	// cycle; only stablecoin-to-asset rebalancing is evaluated, no bracket is
	// created
	StatusZeroQuantity CycleStatus = "ZERO_QUANTITY_MONITORING"
	// StatusInsufficientQuantity means the computed order size fell below the
	// venue minimum
	StatusInsufficientQuantity CycleStatus = "INSUFFICIENT_QUANTITY"
	// StatusProfitTaken means open legs were closed at target
	StatusProfitTaken CycleStatus = "PROFIT_TAKEN"
	// StatusSwapPerformed means profit was taken and proceeds were rebalanced
	StatusSwapPerformed CycleStatus = "SWAP_PERFORMED"
	// StatusClosed means the position reached its trade limit and was closed
	StatusClosed CycleStatus = "CLOSED"
	// StatusSkipped means another cycle already holds the symbol lock
	StatusSkipped CycleStatus = "SKIPPED"
	// StatusDisabled means the engine is switched off
	StatusDisabled CycleStatus = "DISABLED"
	// StatusError means the cycle aborted on an unrecoverable error
	StatusError CycleStatus = "ERROR"
)

// CycleMetrics carries the market snapshot a cycle decided on
type CycleMetrics struct {
	CurrentPrice   float64                     `json:"current_price"`
	ShortVol       float64                     `json:"short_vol"`
	MediumVol      float64                     `json:"medium_vol"`
	LongVol        float64                     `json:"long_vol"`
	Thresholds     analytics.ProfitThresholds  `json:"thresholds"`
	Streak         int                         `json:"streak"`
	StreakTarget   int                         `json:"streak_target"`
	Trend          string                      `json:"trend"`
	Pattern        string                      `json:"pattern"`
	VolumeProfile  string                      `json:"volume_profile"`
	RelativeVolume float64                     `json:"relative_volume"`
	RSI            float64                     `json:"rsi"`
	Support        float64                     `json:"support"`
	Resistance     float64                     `json:"resistance"`
	TimeFactor     float64                     `json:"time_factor"`
	Breakout       *analytics.BreakoutSignal  `json:"breakout,omitempty"`
	EntryLevels    *EntryLevels                `json:"entry_levels,omitempty"`
}

// CycleResult is the full outcome of RunCycle. Exactly one Status is set; the
// remaining fields are populated according to that status.
type CycleResult struct {
	Symbol      string                     `json:"symbol"`
	Status      CycleStatus                `json:"status"`
	Reason      string                     `json:"reason,omitempty"`
	Metrics     *CycleMetrics              `json:"metrics,omitempty"`
	Trades      []database.Trade           `json:"trades,omitempty"`
	Swap        *swap.Result               `json:"swap,omitempty"`
	Suggestions []string                   `json:"suggestions,omitempty"`
	PnL         float64                    `json:"pnl,omitempty"`
	PnLPercent  float64                    `json:"pnl_percent,omitempty"`
	MinQuantity float64                    `json:"min_quantity,omitempty"`
	Err         string                     `json:"error,omitempty"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// Failed reports whether the cycle ended in an error state
func (r *CycleResult) Failed() bool {
	return r.Status == StatusError
}
