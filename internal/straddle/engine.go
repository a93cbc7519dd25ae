package straddle

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/analytics"
	"straddle-trading-bot/internal/circuit"
	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/logging"
	"straddle-trading-bot/internal/market"
	"straddle-trading-bot/internal/swap"
)

// Kline windows for the volatility estimates and pattern detection
const (
	monitorInterval = "15m"
	monitorBars     = 96
	shortVolBars    = 12
	mediumVolBars   = 48
	longVolBars     = 30
	srLevels        = 3
)

// Store is the persistence surface the engine needs
type Store interface {
	CreatePosition(ctx context.Context, p *database.Position) error
	GetPositionBySymbolAndStatuses(ctx context.Context, symbol string, statuses []string) (*database.Position, error)
	UpdatePosition(ctx context.Context, p *database.Position) error
	CreateBracket(ctx context.Context, buy, sell *database.Trade) error
	GetTradesByPositionID(ctx context.Context, positionID int64) ([]database.Trade, error)
	UpdateTrade(ctx context.Context, t *database.Trade) error
	CreateSwapTransaction(ctx context.Context, s *database.SwapTransaction) error
	GetTradesForPeriod(ctx context.Context, start, end time.Time) ([]database.Trade, error)
	GetSwapsForPeriod(ctx context.Context, start, end time.Time) ([]database.SwapTransaction, error)
}

// Ranker picks the most liquid stablecoin for rebalancing
type Ranker interface {
	BestStablecoin(baseAsset string) (*market.StablecoinRanking, error)
}

// Notifier delivers cycle outcomes to external channels
type Notifier interface {
	SendBracketCreated(symbol string, currentPrice, buyEntry, sellEntry, quantity float64)
	SendProfitTaken(symbol string, entryPrice, exitPrice, pnl, pnlPercent float64, reason string)
	SendSwap(fromSymbol, toSymbol string, fromAmount, toAmount, rate float64)
	SendBuyBack(symbol string, price, amount float64, reason string)
	SendError(title, message string)
}

// Config controls engine behavior
type Config struct {
	Enabled           bool
	LongInterval      string
	MaxTradeLimit     int
	MinNotionalUSD    float64
	TradeAmountUSD    float64
	ProfitMultiplier  float64
	StablecoinSymbols []string
	DryRun            bool
	Breaker           circuit.Config
}

// Engine runs the bracket decision cycle for symbols
type Engine struct {
	cfg        Config
	store      Store
	marketData market.DataSource
	swapper    swap.Executor
	ranker     Ranker
	notifier   Notifier
	locks      *symbolLocks
	breaker    *circuit.Breaker
	portfolio  *portfolioState
	logger     zerolog.Logger
}

func NewEngine(cfg Config, store Store, data market.DataSource, swapper swap.Executor, ranker Ranker, notifier Notifier) *Engine {
	if cfg.LongInterval == "" {
		cfg.LongInterval = "1h"
	}
	if cfg.MaxTradeLimit <= 0 {
		cfg.MaxTradeLimit = 10
	}
	if cfg.ProfitMultiplier <= 0 {
		cfg.ProfitMultiplier = 1.0
	}
	return &Engine{
		cfg:        cfg,
		store:      store,
		marketData: data,
		swapper:    swapper,
		ranker:     ranker,
		notifier:   notifier,
		locks:      newSymbolLocks(),
		breaker:    circuit.NewBreaker(cfg.Breaker),
		portfolio:  newPortfolioState(),
		logger:     logging.WithComponent("straddle"),
	}
}

// RunCycle executes one decision cycle for a symbol. It never panics outward
// and never returns nil: every failure mode maps to a CycleResult status. The
// portfolio refresh, notification, and lock release run even when the cycle
// errors out.
func (e *Engine) RunCycle(ctx context.Context, symbol string) *CycleResult {
	result := &CycleResult{Symbol: symbol, Timestamp: time.Now().UTC()}

	if !e.cfg.Enabled {
		result.Status = StatusDisabled
		result.Reason = "engine disabled"
		return result
	}

	if !e.locks.TryAcquire(symbol) {
		result.Status = StatusSkipped
		result.Reason = "cycle already in progress for symbol"
		return result
	}
	defer e.finishCycle(ctx, symbol, result)

	e.runLocked(ctx, symbol, result)
	return result
}

// finishCycle is the guaranteed tail of every locked cycle
func (e *Engine) finishCycle(ctx context.Context, symbol string, result *CycleResult) {
	if r := recover(); r != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("panic: %v", r)
		e.logger.Error().Str("symbol", symbol).Interface("panic", r).Msg("cycle panicked")
	}

	e.refreshPortfolio(ctx, symbol, result)

	if result.Status == StatusError {
		e.notifier.SendError(fmt.Sprintf("Cycle failed: %s", symbol), result.Err)
	}

	e.locks.Release(symbol)

	e.logger.Info().
		Str("symbol", symbol).
		Str("status", string(result.Status)).
		Str("reason", result.Reason).
		Msg("cycle finished")
}

func (e *Engine) runLocked(ctx context.Context, symbol string, result *CycleResult) {
	metrics, err := e.collectMetrics(symbol)
	if err != nil {
		result.Status = StatusError
		result.Err = err.Error()
		return
	}
	result.Metrics = metrics

	position, err := e.store.GetPositionBySymbolAndStatuses(ctx, symbol,
		[]string{database.PositionStatusOpen, database.PositionStatusInProgress})
	if err != nil {
		result.Status = StatusError
		result.Err = err.Error()
		return
	}

	if position == nil {
		e.openPosition(ctx, symbol, metrics, result)
		return
	}

	e.monitorPosition(ctx, position, metrics, result)
}

// BreakerStatus exposes the circuit breaker state for the inspection API
func (e *Engine) BreakerStatus() (circuit.State, string) {
	return e.breaker.Status()
}

// Metrics snapshots the current market state for a symbol without running a
// cycle. Used by the inspection API.
func (e *Engine) Metrics(symbol string) (*CycleMetrics, error) {
	return e.collectMetrics(symbol)
}

// collectMetrics snapshots the market state a cycle decides on
func (e *Engine) collectMetrics(symbol string) (*CycleMetrics, error) {
	price, err := e.marketData.GetCurrentPrice(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("non-positive price %f for %s", price, symbol)
	}

	klines, err := e.marketData.GetKlines(symbol, monitorInterval, monitorBars)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}

	longKlines, err := e.marketData.GetKlines(symbol, e.cfg.LongInterval, longVolBars)
	if err != nil {
		return nil, fmt.Errorf("failed to get long klines for %s: %w", symbol, err)
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	volumes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
		volumes[i] = k.Volume
	}

	longCloses := make([]float64, len(longKlines))
	for i, k := range longKlines {
		longCloses[i] = k.Close
	}

	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			changes = append(changes, math.Abs((closes[i]-closes[i-1])/closes[i-1]*100))
		}
	}

	levels := analytics.SupportResistance(highs, lows, price, srLevels)

	metrics := &CycleMetrics{
		CurrentPrice:   price,
		ShortVol:       analytics.Volatility(tail(closes, shortVolBars)),
		MediumVol:      analytics.Volatility(tail(closes, mediumVolBars)),
		LongVol:        analytics.Volatility(longCloses),
		Thresholds:     analytics.DynamicProfitThresholds(closes, e.cfg.ProfitMultiplier),
		Streak:         analytics.ConsecutiveMoves(closes),
		StreakTarget:   analytics.ConsecutiveMoveThreshold(changes),
		Trend:          analytics.TrendDirection(closes),
		Pattern:        analytics.DetectPattern(klines),
		VolumeProfile:  analytics.VolumeProfile(closes, volumes),
		RelativeVolume: analytics.RelativeVolume(volumes),
		RSI:            analytics.RSI(klines, 14),
		Support:        levels.NearestSupport(),
		Resistance:     levels.NearestResistance(),
		TimeFactor:     analytics.TimeOfDayFactor(time.Now().UTC().Hour()),
		Breakout:       analytics.DetectBreakout(klines, price),
	}

	entryLevels, err := CalculateEntryLevels(price, metrics.ShortVol, metrics.MediumVol, metrics.LongVol)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate entry levels: %w", err)
	}
	metrics.EntryLevels = entryLevels

	return metrics, nil
}

// openPosition creates a position with its first bracket
func (e *Engine) openPosition(ctx context.Context, symbol string, metrics *CycleMetrics, result *CycleResult) {
	quantity, minQty := e.bracketQuantity(metrics.CurrentPrice)
	result.MinQuantity = minQty

	if quantity <= 0 {
		result.Status = StatusInsufficientQuantity
		result.Reason = fmt.Sprintf("notional %.2f USD below minimum %.2f",
			e.cfg.TradeAmountUSD, e.cfg.MinNotionalUSD)
		return
	}

	if ok, reason := e.breaker.Allow(); !ok {
		result.Status = StatusNoPosition
		result.Reason = "circuit breaker open: " + reason
		return
	}

	if e.cfg.DryRun {
		result.Status = StatusNoPosition
		result.Reason = "dry run: bracket not created"
		return
	}

	now := time.Now().UTC()
	position := &database.Position{
		Symbol:        symbol,
		Strategy:      "straddle",
		Status:        database.PositionStatusOpen,
		OpenTime:      now,
		MaxTradeLimit: e.cfg.MaxTradeLimit,
		TradeAmount:   e.cfg.TradeAmountUSD,
	}
	if err := e.store.CreatePosition(ctx, position); err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to create position: %v", err)
		return
	}

	if err := e.createBracket(ctx, position, metrics, quantity, result); err != nil {
		result.Status = StatusError
		result.Err = err.Error()
		return
	}

	position.Status = database.PositionStatusInProgress
	if err := e.store.UpdatePosition(ctx, position); err != nil {
		result.Status = StatusError
		result.Err = fmt.Sprintf("failed to transition position to monitoring: %v", err)
		return
	}

	result.Status = StatusInitiated
	result.Reason = "position opened with initial bracket"
}

// createBracket inserts both legs atomically and notifies. The buy leg fires
// on an upward breakout, the sell leg on a downward one, so their TP/SL are
// computed for those directions at creation.
func (e *Engine) createBracket(ctx context.Context, position *database.Position, metrics *CycleMetrics, quantity float64, result *CycleResult) error {
	levels := metrics.EntryLevels.Short

	buyParams, err := CalculatePositionParams(levels.Buy,
		metrics.Thresholds.Small, metrics.Thresholds.Large, DirectionUp)
	if err != nil {
		return fmt.Errorf("failed to compute buy leg params: %w", err)
	}
	sellParams, err := CalculatePositionParams(levels.Sell,
		metrics.Thresholds.Small, metrics.Thresholds.Large, DirectionDown)
	if err != nil {
		return fmt.Errorf("failed to compute sell leg params: %w", err)
	}

	buy := &database.Trade{
		PositionID:    position.ID,
		Symbol:        position.Symbol,
		Side:          database.SideBuy,
		Quantity:      quantity,
		EntryPrice:    levels.Buy,
		TakeProfit:    &buyParams.TakeProfit,
		StopLoss:      &buyParams.StopLoss,
		OrderType:     "STOP",
		ClientOrderID: uuid.New().String(),
		Status:        database.TradeStatusPending,
	}
	sell := &database.Trade{
		PositionID:    position.ID,
		Symbol:        position.Symbol,
		Side:          database.SideSell,
		Quantity:      quantity,
		EntryPrice:    levels.Sell,
		TakeProfit:    &sellParams.TakeProfit,
		StopLoss:      &sellParams.StopLoss,
		OrderType:     "STOP",
		ClientOrderID: uuid.New().String(),
		Status:        database.TradeStatusPending,
	}

	if err := e.store.CreateBracket(ctx, buy, sell); err != nil {
		return fmt.Errorf("failed to create bracket: %w", err)
	}

	result.Trades = append(result.Trades, *buy, *sell)
	e.notifier.SendBracketCreated(position.Symbol, metrics.CurrentPrice, levels.Buy, levels.Sell, quantity)
	return nil
}

// bracketQuantity sizes a leg from the configured USD notional, floored to the
// price-tier step. Returns zero when the result would violate the venue
// minimum notional.
func (e *Engine) bracketQuantity(price float64) (quantity, minQty float64) {
	minQty = minQuantityForPrice(price)
	if price <= 0 || e.cfg.TradeAmountUSD <= 0 {
		return 0, minQty
	}

	raw := e.cfg.TradeAmountUSD / price
	quantity = math.Floor(raw/minQty) * minQty

	if quantity < minQty || quantity*price < e.cfg.MinNotionalUSD {
		return 0, minQty
	}
	return quantity, minQty
}

// minQuantityForPrice returns the order size step by price magnitude,
// mirroring typical exchange lot filters.
func minQuantityForPrice(price float64) float64 {
	switch {
	case price >= 10000:
		return 0.0001
	case price >= 1000:
		return 0.001
	case price >= 100:
		return 0.01
	case price >= 1:
		return 0.1
	default:
		return 1
	}
}

// baseAsset strips the quote suffix from a trading pair symbol
func baseAsset(symbol string) string {
	for _, quote := range []string{"USDT", "USDC", "FDUSD", "TUSD", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}

// quoteAsset returns the quote suffix of a trading pair symbol, USDT when
// unrecognized
func quoteAsset(symbol string) string {
	for _, quote := range []string{"USDT", "USDC", "FDUSD", "TUSD", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return quote
		}
	}
	return "USDT"
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
