package straddle

import (
	"context"
	"fmt"
	"time"

	"straddle-trading-bot/internal/analytics"
	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/swap"
)

const (
	baseSwapFraction = 0.3
	buyBackFraction  = 0.25
)

// computeSwapFraction decides how much of the base holdings to park in a
// stablecoin after a profit take. Bearish context pushes more into stable,
// bullish context keeps more deployed.
func computeSwapFraction(metrics *CycleMetrics) float64 {
	fraction := baseSwapFraction

	switch metrics.Trend {
	case analytics.TrendBearish:
		fraction += 0.2
	case analytics.TrendBullish:
		fraction -= 0.1
	}

	switch metrics.VolumeProfile {
	case analytics.ProfileDistribution:
		fraction += 0.1
	case analytics.ProfileAccumulation:
		fraction -= 0.1
	}

	if metrics.ShortVol > 0.02 {
		fraction += 0.1
	}
	if metrics.RelativeVolume > 1.5 {
		fraction += 0.05
	}

	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

// rebalanceProceeds converts a fraction of the base holdings into the most
// liquid stablecoin after a profit take. Swap failures are recorded and logged
// but never fail the cycle: the profit is already booked.
func (e *Engine) rebalanceProceeds(ctx context.Context, position *database.Position, metrics *CycleMetrics, result *CycleResult) {
	if e.cfg.DryRun {
		return
	}

	fraction := computeSwapFraction(metrics)
	if fraction <= 0 {
		return
	}

	base := baseAsset(position.Symbol)
	balance, err := e.marketData.GetBalance(base)
	if err != nil {
		e.logger.Warn().Err(err).Str("asset", base).Msg("rebalance skipped: balance unavailable")
		return
	}

	amount := balance * fraction
	if amount*metrics.CurrentPrice < e.cfg.MinNotionalUSD {
		return
	}

	ranking, err := e.ranker.BestStablecoin(base)
	if err != nil {
		e.logger.Warn().Err(err).Str("asset", base).Msg("rebalance skipped: no stablecoin ranking")
		return
	}

	swapResult, err := e.swapper.Swap(ctx, base, ranking.Best, amount)
	if err != nil {
		e.logger.Error().Err(err).
			Str("from", base).
			Str("to", ranking.Best).
			Float64("amount", amount).
			Msg("rebalance swap failed")
		e.recordSwap(ctx, position, &swap.Result{
			FromSymbol: base, ToSymbol: ranking.Best, FromAmount: amount,
		}, database.SwapStatusFailed)
		return
	}

	e.recordSwap(ctx, position, swapResult, database.SwapStatusCompleted)
	e.notifier.SendSwap(swapResult.FromSymbol, swapResult.ToSymbol,
		swapResult.FromAmount, swapResult.ToAmount, swapResult.Rate)

	result.Swap = swapResult
	result.Status = StatusSwapPerformed
	result.Reason = fmt.Sprintf("profit taken, %.1f%% of %s parked in %s",
		fraction*100, base, ranking.Best)
}

// maybeBuyBack converts parked stablecoin back into the base asset when dip
// conditions line up. Runs during monitoring only; never changes the cycle
// status.
func (e *Engine) maybeBuyBack(ctx context.Context, position *database.Position, metrics *CycleMetrics, result *CycleResult) {
	if e.cfg.DryRun {
		return
	}

	reason, ok := buyBackReason(metrics)
	if !ok {
		return
	}

	base := baseAsset(position.Symbol)
	ranking, err := e.ranker.BestStablecoin(base)
	if err != nil {
		return
	}

	stableBalance, err := e.marketData.GetBalance(ranking.Best)
	if err != nil || stableBalance < e.cfg.MinNotionalUSD {
		return
	}

	amount := stableBalance * buyBackFraction
	swapResult, err := e.swapper.Swap(ctx, ranking.Best, base, amount)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("from", ranking.Best).
			Str("to", base).
			Msg("buy back swap failed")
		return
	}

	e.recordSwap(ctx, position, swapResult, database.SwapStatusCompleted)
	e.notifier.SendBuyBack(position.Symbol, metrics.CurrentPrice, swapResult.ToAmount, reason)

	result.Swap = swapResult
	result.Suggestions = append(result.Suggestions, "buy back executed: "+reason)
}

// buyBackReason checks dip-entry conditions: a bullish reversal pattern, price
// sitting on support, accumulation volume, or a sharp streak down during
// liquid hours.
func buyBackReason(metrics *CycleMetrics) (string, bool) {
	if metrics.TimeFactor < 1.0 {
		return "", false
	}

	nearSupport := metrics.Support > 0 &&
		metrics.CurrentPrice <= metrics.Support*1.01

	switch {
	case analytics.IsBullishPattern(metrics.Pattern):
		return fmt.Sprintf("bullish pattern %s", metrics.Pattern), true
	case nearSupport && metrics.VolumeProfile == analytics.ProfileAccumulation:
		return "price at support with accumulation volume", true
	case metrics.Streak <= -metrics.StreakTarget && metrics.RSI < 35:
		return fmt.Sprintf("oversold after %d consecutive down moves", -metrics.Streak), true
	default:
		return "", false
	}
}

func (e *Engine) recordSwap(ctx context.Context, position *database.Position, r *swap.Result, status string) {
	tx := &database.SwapTransaction{
		PositionID:    &position.ID,
		TransactionID: r.TransactionID,
		FromSymbol:    r.FromSymbol,
		ToSymbol:      r.ToSymbol,
		FromAmount:    r.FromAmount,
		ToAmount:      r.ToAmount,
		Rate:          r.Rate,
		FeePercentage: r.FeePercentage,
		FeeAmount:     r.FeeAmount,
		Status:        status,
		Timestamp:     r.Timestamp,
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if err := e.store.CreateSwapTransaction(ctx, tx); err != nil {
		e.logger.Error().Err(err).Str("tx", r.TransactionID).Msg("failed to persist swap transaction")
	}
}

// suggestions summarizes actionable context for a monitoring cycle
func suggestions(metrics *CycleMetrics) []string {
	var out []string

	if metrics.Resistance > 0 && metrics.CurrentPrice >= metrics.Resistance*0.99 {
		out = append(out, fmt.Sprintf("price near resistance %.4f, tightened target", metrics.Resistance))
	}
	if metrics.Support > 0 && metrics.CurrentPrice <= metrics.Support*1.01 {
		out = append(out, fmt.Sprintf("price near support %.4f", metrics.Support))
	}
	if analytics.IsBearishPattern(metrics.Pattern) {
		out = append(out, "bearish pattern: "+metrics.Pattern)
	}
	if analytics.IsBullishPattern(metrics.Pattern) {
		out = append(out, "bullish pattern: "+metrics.Pattern)
	}
	if metrics.RSI >= 70 {
		out = append(out, fmt.Sprintf("RSI overbought at %.1f", metrics.RSI))
	}
	if metrics.RSI <= 30 {
		out = append(out, fmt.Sprintf("RSI oversold at %.1f", metrics.RSI))
	}
	return out
}
