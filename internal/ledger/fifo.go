// Package ledger implements FIFO cost-basis accounting over a chronological
// stream of trade and swap events. The ledger is pure and replayable: callers
// pre-filter the event stream (by position, by date range) and Replay produces
// identical output for identical input.
package ledger

import (
	"time"

	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// Event kinds
const (
	EventTrade = "trade"
	EventSwap  = "swap"
)

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Event is one entry in the chronological stream. Trades carry Symbol, Side,
// Amount, Price and Fee. Swaps carry the From/To legs; the source leg consumes
// lots like a sell but transfers cost basis to the destination instead of
// realizing profit.
type Event struct {
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol,omitempty"`
	Side       string    `json:"side,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Fee        float64   `json:"fee,omitempty"`
	FromSymbol string    `json:"from_symbol,omitempty"`
	ToSymbol   string    `json:"to_symbol,omitempty"`
	FromAmount float64   `json:"from_amount,omitempty"`
	ToAmount   float64   `json:"to_amount,omitempty"`
}

// ProfitRecord is the realized outcome of a single sell event
type ProfitRecord struct {
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
	Amount        float64   `json:"amount"`
	Proceeds      float64   `json:"proceeds"`
	CostBasis     float64   `json:"cost_basis"`
	Fee           float64   `json:"fee"`
	Profit        float64   `json:"profit"`
	ProfitPercent float64   `json:"profit_percent"`
	// Shortfall is the portion sold with no matching lot; it enters the
	// profit at zero cost basis rather than failing the replay.
	Shortfall float64 `json:"shortfall,omitempty"`
}

// Holding is the remaining open amount for a symbol with its weighted-average
// unit cost
type Holding struct {
	Amount      float64 `json:"amount"`
	AverageCost float64 `json:"average_cost"`
}

// Result summarizes one replay run
type Result struct {
	RealizedProfit   float64            `json:"realized_profit"`
	TotalFees        float64            `json:"total_fees"`
	Records          []ProfitRecord     `json:"records"`
	ProfitableEvents int                `json:"profitable_events"`
	LosingEvents     int                `json:"losing_events"`
	Holdings         map[string]Holding `json:"holdings"`
}

// lot is one FIFO queue entry: an open amount bought at a unit cost
type lot struct {
	amount   float64
	unitCost float64
}

// Ledger holds per-symbol FIFO lot queues during a replay
type Ledger struct {
	queues map[string][]lot
	logger zerolog.Logger
}

func New() *Ledger {
	return &Ledger{
		queues: make(map[string][]lot),
		logger: logging.WithComponent("ledger"),
	}
}

// Replay ingests the event stream in order and returns the accounting summary.
// The stream must already be filtered and time-ordered by the caller.
func Replay(events []Event) *Result {
	l := New()
	result := &Result{Holdings: make(map[string]Holding)}

	for _, ev := range events {
		switch ev.Type {
		case EventTrade:
			switch ev.Side {
			case SideBuy:
				l.buy(ev.Symbol, ev.Amount, ev.Price)
				result.TotalFees += ev.Fee
			case SideSell:
				record := l.sell(ev.Symbol, ev.Amount, ev.Price, ev.Fee, ev.Timestamp)
				result.Records = append(result.Records, record)
				result.RealizedProfit += record.Profit
				result.TotalFees += ev.Fee
				if record.Profit > 0 {
					result.ProfitableEvents++
				} else {
					result.LosingEvents++
				}
			default:
				l.logger.Warn().Str("side", ev.Side).Msg("skipping trade event with unknown side")
			}
		case EventSwap:
			l.swap(ev)
			result.TotalFees += ev.Fee
		default:
			l.logger.Warn().Str("type", ev.Type).Msg("skipping unknown event type")
		}
	}

	for symbol, queue := range l.queues {
		amount, cost := 0.0, 0.0
		for _, lt := range queue {
			amount += lt.amount
			cost += lt.amount * lt.unitCost
		}
		if amount <= 0 {
			continue
		}
		result.Holdings[symbol] = Holding{
			Amount:      amount,
			AverageCost: cost / amount,
		}
	}

	return result
}

// buy pushes a new lot at the back of the symbol's queue
func (l *Ledger) buy(symbol string, amount, price float64) {
	if amount <= 0 {
		return
	}
	l.queues[symbol] = append(l.queues[symbol], lot{amount: amount, unitCost: price})
}

// sell consumes lots oldest-first. A partially consumed lot goes back to the
// front with its amount reduced. If the queue runs dry before the sell amount
// is covered, the remainder is treated as zero cost basis and flagged.
func (l *Ledger) sell(symbol string, amount, price, fee float64, ts time.Time) ProfitRecord {
	consumed, costBasis, shortfall := l.consume(symbol, amount)

	proceeds := amount * price
	profit := proceeds - costBasis - fee

	profitPercent := 0.0
	if costBasis > 0 {
		profitPercent = profit / costBasis * 100
	}

	if shortfall > 0 {
		l.logger.Warn().
			Str("symbol", symbol).
			Float64("shortfall", shortfall).
			Msg("sell exceeds open lots, remainder booked at zero cost basis")
	}

	return ProfitRecord{
		Symbol:        symbol,
		Timestamp:     ts,
		Amount:        consumed + shortfall,
		Proceeds:      proceeds,
		CostBasis:     costBasis,
		Fee:           fee,
		Profit:        profit,
		ProfitPercent: profitPercent,
		Shortfall:     shortfall,
	}
}

// swap consumes source lots like a sell but transfers the cost basis to a new
// destination lot at effective unit cost. No profit is realized until the
// destination asset is itself sold.
func (l *Ledger) swap(ev Event) {
	if ev.FromAmount <= 0 || ev.ToAmount <= 0 {
		l.logger.Warn().
			Str("from", ev.FromSymbol).
			Str("to", ev.ToSymbol).
			Msg("skipping swap with non-positive amounts")
		return
	}

	_, costBasis, shortfall := l.consume(ev.FromSymbol, ev.FromAmount)
	if shortfall > 0 {
		l.logger.Warn().
			Str("symbol", ev.FromSymbol).
			Float64("shortfall", shortfall).
			Msg("swap source exceeds open lots")
	}

	effectiveUnitCost := costBasis / ev.ToAmount
	l.queues[ev.ToSymbol] = append(l.queues[ev.ToSymbol], lot{
		amount:   ev.ToAmount,
		unitCost: effectiveUnitCost,
	})
}

// consume pops up to amount from the symbol's queue oldest-first and returns
// the amount actually consumed, its cost basis, and any uncovered remainder.
func (l *Ledger) consume(symbol string, amount float64) (consumed, costBasis, shortfall float64) {
	queue := l.queues[symbol]
	remaining := amount

	for remaining > 0 && len(queue) > 0 {
		head := queue[0]
		take := head.amount
		if take > remaining {
			take = remaining
		}

		costBasis += take * head.unitCost
		consumed += take
		remaining -= take

		if take < head.amount {
			queue[0].amount = head.amount - take
		} else {
			queue = queue[1:]
		}
	}

	l.queues[symbol] = queue
	return consumed, costBasis, remaining
}
