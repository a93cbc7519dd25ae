package straddle

import (
	"context"
	"sort"
	"sync"
	"time"

	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/ledger"
)

// SymbolHolding is one asset's contribution to the portfolio summary
type SymbolHolding struct {
	Symbol    string  `json:"symbol"`
	BaseAsset string  `json:"base_asset"`
	Balance   float64 `json:"balance"`
	Price     float64 `json:"price"`
	ValueUSD  float64 `json:"value_usd"`
}

// PortfolioSummary is the latest view of tracked holdings. Refreshed at the
// tail of every cycle, including failed ones.
type PortfolioSummary struct {
	Holdings    map[string]SymbolHolding `json:"holdings"`
	TotalUSD    float64                  `json:"total_usd"`
	RefreshedAt time.Time                `json:"refreshed_at"`
}

type portfolioState struct {
	mu       sync.RWMutex
	holdings map[string]SymbolHolding
	updated  time.Time
}

func newPortfolioState() *portfolioState {
	return &portfolioState{holdings: make(map[string]SymbolHolding)}
}

// refreshPortfolio updates the summary for the cycle's symbol. Best effort:
// failures are logged and the stale entry is kept.
func (e *Engine) refreshPortfolio(ctx context.Context, symbol string, result *CycleResult) {
	base := baseAsset(symbol)

	balance, err := e.marketData.GetBalance(base)
	if err != nil {
		e.logger.Warn().Err(err).Str("asset", base).Msg("portfolio refresh: balance unavailable")
		return
	}

	price := 0.0
	if result.Metrics != nil {
		price = result.Metrics.CurrentPrice
	}
	if price <= 0 {
		if price, err = e.marketData.GetCurrentPrice(symbol); err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("portfolio refresh: price unavailable")
			return
		}
	}

	e.portfolio.mu.Lock()
	defer e.portfolio.mu.Unlock()
	e.portfolio.holdings[symbol] = SymbolHolding{
		Symbol:    symbol,
		BaseAsset: base,
		Balance:   balance,
		Price:     price,
		ValueUSD:  balance * price,
	}
	e.portfolio.updated = time.Now().UTC()
}

// Portfolio returns a copy of the current portfolio summary
func (e *Engine) Portfolio() PortfolioSummary {
	e.portfolio.mu.RLock()
	defer e.portfolio.mu.RUnlock()

	summary := PortfolioSummary{
		Holdings:    make(map[string]SymbolHolding, len(e.portfolio.holdings)),
		RefreshedAt: e.portfolio.updated,
	}
	for k, v := range e.portfolio.holdings {
		summary.Holdings[k] = v
		summary.TotalUSD += v.ValueUSD
	}
	return summary
}

// LockHeld reports whether a cycle currently holds the symbol lock
func (e *Engine) LockHeld(symbol string) bool {
	return e.locks.Held(symbol)
}

// ProfitReport replays the period's closed trades and swaps through the FIFO
// ledger. Swaps transfer cost basis without realizing profit, so the report
// reflects true realized P&L rather than per-swap marks.
func (e *Engine) ProfitReport(ctx context.Context, start, end time.Time) (*ledger.Result, error) {
	trades, err := e.store.GetTradesForPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	swaps, err := e.store.GetSwapsForPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return ledger.Replay(toLedgerEvents(trades, swaps)), nil
}

// toLedgerEvents translates persisted rows into ledger events in timestamp
// order. A closed BUY leg is a buy at entry and a sell at close; a closed SELL
// leg is the inverse.
func toLedgerEvents(trades []database.Trade, swaps []database.SwapTransaction) []ledger.Event {
	events := make([]ledger.Event, 0, len(trades)*2+len(swaps))

	for _, t := range trades {
		if t.EnteredAt == nil {
			continue
		}
		base := baseAsset(t.Symbol)

		entrySide := ledger.SideBuy
		closeSide := ledger.SideSell
		if t.Side == database.SideSell {
			entrySide, closeSide = ledger.SideSell, ledger.SideBuy
		}

		events = append(events, ledger.Event{
			Type:      ledger.EventTrade,
			Side:      entrySide,
			Symbol:    base,
			Amount:    t.Quantity,
			Price:     t.EntryPrice,
			Timestamp: *t.EnteredAt,
		})

		if t.Status == database.TradeStatusClosed && t.ClosedAt != nil && t.ClosePrice != nil {
			events = append(events, ledger.Event{
				Type:      ledger.EventTrade,
				Side:      closeSide,
				Symbol:    base,
				Amount:    t.Quantity,
				Price:     *t.ClosePrice,
				Timestamp: *t.ClosedAt,
			})
		}
	}

	for _, s := range swaps {
		if s.Status != database.SwapStatusCompleted {
			continue
		}
		events = append(events, ledger.Event{
			Type:       ledger.EventSwap,
			FromSymbol: s.FromSymbol,
			ToSymbol:   s.ToSymbol,
			FromAmount: s.FromAmount,
			ToAmount:   s.ToAmount,
			Fee:        s.FeeAmount,
			Timestamp:  s.Timestamp,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
