package straddle

import (
	"context"
	"fmt"
	"math"
	"time"

	"straddle-trading-bot/internal/analytics"
	"straddle-trading-bot/internal/database"
)

// monitorPosition advances an existing position through one cycle: activate
// triggered entries, take profit when the target is hit, otherwise keep
// watching.
func (e *Engine) monitorPosition(ctx context.Context, position *database.Position, metrics *CycleMetrics, result *CycleResult) {
	trades, err := e.store.GetTradesByPositionID(ctx, position.ID)
	if err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to load trades: %v", err)
		return
	}

	pending, open := e.activateTriggered(ctx, trades, metrics, result)
	if result.Status == StatusError {
		return
	}

	if len(open) == 0 {
		e.handleNoOpenLegs(ctx, position, trades, pending, metrics, result)
		return
	}

	pnl, pnlPct := legGains(open, metrics.CurrentPrice)
	result.PnL = pnl
	result.PnLPercent = pnlPct

	applyExposure(position, open)
	position.UnrealizedPnL = pnl
	if err := e.store.UpdatePosition(ctx, position); err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to persist exposure: %v", err)
		return
	}

	target := e.profitTarget(metrics)

	if pnlPct >= target {
		e.takeProfit(ctx, position, open, pending, metrics, result)
		return
	}

	result.Status = StatusMonitoring
	result.Reason = fmt.Sprintf("gain %.2f%% below target %.2f%%", pnlPct, target)
	result.Suggestions = suggestions(metrics)
	result.Trades = append(result.Trades, open...)

	e.maybeBuyBack(ctx, position, metrics, result)
}

// activateTriggered flips pending legs whose entry the price has crossed to
// OPEN and cancels their siblings. A confident breakout signal pointing the
// other way defers the crossing as a likely fakeout until the next cycle.
// Returns the remaining pending and the open legs.
func (e *Engine) activateTriggered(ctx context.Context, trades []database.Trade, metrics *CycleMetrics, result *CycleResult) (pending, open []database.Trade) {
	triggered := false
	now := time.Now().UTC()
	price := metrics.CurrentPrice

	for _, t := range trades {
		switch t.Status {
		case database.TradeStatusOpen:
			open = append(open, t)
		case database.TradeStatusPending:
			pending = append(pending, t)
		}
	}

	for i := range pending {
		t := &pending[i]
		hit := (t.Side == database.SideBuy && price >= t.EntryPrice) ||
			(t.Side == database.SideSell && price <= t.EntryPrice)
		if !hit || triggered {
			continue
		}
		if opposesBreakout(metrics.Breakout, t.Side) {
			e.logger.Info().
				Str("symbol", t.Symbol).
				Str("side", t.Side).
				Str("breakout", metrics.Breakout.Direction).
				Float64("confidence", metrics.Breakout.Confidence).
				Msg("entry crossing deferred, breakout points the other way")
			continue
		}

		t.Status = database.TradeStatusOpen
		t.EnteredAt = &now
		if err := e.store.UpdateTrade(ctx, t); err != nil {
			result.Status = StatusError
			result.Err = fmt.Sprintf("failed to activate %s leg: %v", t.Side, err)
			return nil, nil
		}
		open = append(open, *t)
		triggered = true

		e.logger.Info().
			Str("symbol", t.Symbol).
			Str("side", t.Side).
			Float64("entry", t.EntryPrice).
			Float64("price", price).
			Msg("bracket leg activated")
	}

	if !triggered {
		return pending, open
	}

	// One side fired: the opposite entries are stale
	remaining := pending[:0]
	for i := range pending {
		t := &pending[i]
		if t.Status == database.TradeStatusOpen {
			continue
		}
		t.Status = database.TradeStatusCancelled
		if err := e.store.UpdateTrade(ctx, t); err != nil {
			result.Status = StatusError
			result.Err = fmt.Sprintf("failed to cancel sibling leg: %v", err)
			return nil, nil
		}
	}
	return remaining, open
}

// handleNoOpenLegs re-arms or closes a position with no active exposure
func (e *Engine) handleNoOpenLegs(ctx context.Context, position *database.Position, trades, pending []database.Trade, metrics *CycleMetrics, result *CycleResult) {
	if len(pending) > 0 {
		result.Status = StatusZeroQuantity
		result.Reason = "waiting for an entry trigger"
		result.Trades = append(result.Trades, pending...)
		result.Suggestions = suggestions(metrics)
		e.maybeBuyBack(ctx, position, metrics, result)
		return
	}

	if len(trades) >= position.MaxTradeLimit {
		e.closePosition(ctx, position, result)
		return
	}

	quantity, minQty := e.bracketQuantity(metrics.CurrentPrice)
	result.MinQuantity = minQty
	if quantity <= 0 {
		result.Status = StatusInsufficientQuantity
		result.Reason = fmt.Sprintf("notional %.2f USD below minimum %.2f",
			e.cfg.TradeAmountUSD, e.cfg.MinNotionalUSD)
		return
	}

	if ok, reason := e.breaker.Allow(); !ok {
		result.Status = StatusZeroQuantity
		result.Reason = "circuit breaker open: " + reason
		return
	}

	if e.cfg.DryRun {
		result.Status = StatusZeroQuantity
		result.Reason = "dry run: bracket not re-armed"
		return
	}

	if err := e.createBracket(ctx, position, metrics, quantity, result); err != nil {
		result.Status = StatusError
		result.Err = err.Error()
		return
	}
	result.Status = StatusInitiated
	result.Reason = "bracket re-armed"
}

func (e *Engine) closePosition(ctx context.Context, position *database.Position, result *CycleResult) {
	now := time.Now().UTC()
	position.Status = database.PositionStatusClosed
	position.CloseTime = &now
	if err := e.store.UpdatePosition(ctx, position); err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to close position: %v", err)
		return
	}
	result.Status = StatusClosed
	result.Reason = "trade limit reached, position closed"
}

// profitTarget selects the horizon threshold and scales it by market context.
// Persistent streaks escalate the target; a streak plus elevated volatility
// escalates further. Overhead resistance or distribution tightens the target,
// confirmed upside momentum loosens it.
func (e *Engine) profitTarget(metrics *CycleMetrics) float64 {
	target := metrics.Thresholds.Small

	streak := metrics.Streak
	if streak < 0 {
		streak = -streak
	}
	if streak >= metrics.StreakTarget {
		target = metrics.Thresholds.Medium
		if metrics.ShortVol > 0.02 {
			target = metrics.Thresholds.Large
		}
	}

	nearResistance := metrics.Resistance > 0 &&
		metrics.CurrentPrice >= metrics.Resistance*0.99

	switch {
	case nearResistance,
		metrics.Trend == analytics.TrendBearish,
		metrics.VolumeProfile == analytics.ProfileDistribution:
		target *= 0.8
	case metrics.Trend == analytics.TrendBullish && metrics.VolumeProfile == analytics.ProfileAccumulation:
		target *= 1.2
	}

	return target
}

// legGains computes aggregate P&L of open legs at the current price. Percent
// gain uses log returns so buy and sell legs are symmetric.
func legGains(open []database.Trade, price float64) (pnl, pnlPct float64) {
	var logSum float64
	var legs int

	for _, t := range open {
		if t.EntryPrice <= 0 || price <= 0 {
			continue
		}
		legs++
		switch t.Side {
		case database.SideBuy:
			pnl += (price - t.EntryPrice) * t.Quantity
			logSum += math.Log(price / t.EntryPrice)
		case database.SideSell:
			pnl += (t.EntryPrice - price) * t.Quantity
			logSum += math.Log(t.EntryPrice / price)
		}
	}

	if legs == 0 {
		return 0, 0
	}
	return pnl, logSum / float64(legs) * 100
}

// takeProfit closes all open legs at the current price, books P&L, re-arms a
// fresh bracket and rebalances a slice of the proceeds into a stablecoin.
func (e *Engine) takeProfit(ctx context.Context, position *database.Position, open, pending []database.Trade, metrics *CycleMetrics, result *CycleResult) {
	now := time.Now().UTC()
	price := metrics.CurrentPrice

	var totalPnL, entrySum float64
	for i := range open {
		t := &open[i]
		var pnl float64
		if t.Side == database.SideBuy {
			pnl = (price - t.EntryPrice) * t.Quantity
		} else {
			pnl = (t.EntryPrice - price) * t.Quantity
		}

		t.Status = database.TradeStatusClosed
		t.ClosedAt = &now
		t.ClosePrice = &price
		t.PnL = &pnl
		if err := e.store.UpdateTrade(ctx, t); err != nil {
			result.Status = StatusError
			result.Err = fmt.Sprintf("failed to close %s leg: %v", t.Side, err)
			return
		}
		totalPnL += pnl
		entrySum += t.EntryPrice
		result.Trades = append(result.Trades, *t)
	}

	for i := range pending {
		t := &pending[i]
		t.Status = database.TradeStatusCancelled
		if err := e.store.UpdateTrade(ctx, t); err != nil {
			result.Status = StatusError
			result.Err = fmt.Sprintf("failed to cancel pending leg: %v", err)
			return
		}
	}

	e.breaker.Record(totalPnL)

	// Flat after the close: the re-armed legs start pending
	position.TotalQuantity = 0
	position.AverageEntryPrice = 0
	position.UnrealizedPnL = 0
	position.RealizedPnL += totalPnL
	position.Status = database.PositionStatusInProgress
	if err := e.store.UpdatePosition(ctx, position); err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to book realized pnl: %v", err)
		return
	}

	avgEntry := entrySum / float64(len(open))

	result.PnL = totalPnL
	if avgEntry > 0 {
		result.PnLPercent = totalPnL / (avgEntry * sumQuantity(open)) * 100
	}
	result.Status = StatusProfitTaken
	result.Reason = fmt.Sprintf("profit target hit at %.4f", price)
	e.notifier.SendProfitTaken(position.Symbol, avgEntry, price, totalPnL, result.PnLPercent, result.Reason)

	// Re-arm before rebalancing so a swap failure cannot leave the symbol
	// without a bracket
	if quantity, _ := e.bracketQuantity(price); quantity > 0 && !e.cfg.DryRun {
		if ok, reason := e.breaker.Allow(); !ok {
			e.logger.Warn().Str("reason", reason).Str("symbol", position.Symbol).Msg("bracket not re-armed, circuit breaker open")
		} else if err := e.createBracket(ctx, position, metrics, quantity, result); err != nil {
			e.logger.Warn().Err(err).Str("symbol", position.Symbol).Msg("failed to re-arm bracket after profit take")
		}
	}

	e.rebalanceProceeds(ctx, position, metrics, result)
}

// breakoutVetoConfidence is the confidence above which an opposing breakout
// defers an entry crossing
const breakoutVetoConfidence = 0.5

func opposesBreakout(signal *analytics.BreakoutSignal, side string) bool {
	if signal == nil || signal.Confidence < breakoutVetoConfidence {
		return false
	}
	return (side == database.SideBuy && signal.Direction == analytics.BreakoutDown) ||
		(side == database.SideSell && signal.Direction == analytics.BreakoutUp)
}

// applyExposure recomputes the position's signed net exposure and weighted
// entry price from its open legs
func applyExposure(position *database.Position, open []database.Trade) {
	var net, gross, weighted float64
	for _, t := range open {
		if t.Side == database.SideBuy {
			net += t.Quantity
		} else {
			net -= t.Quantity
		}
		gross += t.Quantity
		weighted += t.EntryPrice * t.Quantity
	}
	position.TotalQuantity = net
	if gross > 0 {
		position.AverageEntryPrice = weighted / gross
	} else {
		position.AverageEntryPrice = 0
	}
}

func sumQuantity(trades []database.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += t.Quantity
	}
	if total == 0 {
		return 1
	}
	return total
}
