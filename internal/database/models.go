package database

import (
	"time"
)

// Position statuses
const (
	PositionStatusOpen       = "OPEN"
	PositionStatusInProgress = "IN_PROGRESS"
	PositionStatusClosed     = "CLOSED"
)

// Trade statuses
const (
	TradeStatusPending   = "PENDING"
	TradeStatusOpen      = "OPEN"
	TradeStatusClosed    = "CLOSED"
	TradeStatusCancelled = "CANCELLED"
)

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Swap transaction statuses
const (
	SwapStatusCompleted = "COMPLETED"
	SwapStatusFailed    = "FAILED"
)

// Position represents one active bracket campaign for a symbol. At most one
// non-CLOSED position exists per symbol.
type Position struct {
	ID                int64      `json:"id"`
	Symbol            string     `json:"symbol"`
	Strategy          string     `json:"strategy"`
	TotalQuantity     float64    `json:"total_quantity"` // Signed net exposure
	AverageEntryPrice float64    `json:"average_entry_price"`
	RealizedPnL       float64    `json:"realized_pnl"`
	UnrealizedPnL     float64    `json:"unrealized_pnl"`
	Status            string     `json:"status"`
	OpenTime          time.Time  `json:"open_time"`
	CloseTime         *time.Time `json:"close_time,omitempty"`
	MaxTradeLimit     int        `json:"max_trade_limit"`
	TradeAmount       float64    `json:"trade_amount"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Trade represents one leg of a bracket. A bracket is exactly two trades
// created together: one BUY entry above the creation price, one SELL below.
type Trade struct {
	ID            int64      `json:"id"`
	PositionID    int64      `json:"position_id"`
	Symbol        string     `json:"symbol"`
	Side          string     `json:"side"`
	Quantity      float64    `json:"quantity"`
	EntryPrice    float64    `json:"entry_price"`
	TakeProfit    *float64   `json:"take_profit,omitempty"`
	StopLoss      *float64   `json:"stop_loss,omitempty"`
	OrderType     string     `json:"order_type"`
	ClientOrderID string     `json:"client_order_id"`
	Status        string     `json:"status"`
	EnteredAt     *time.Time `json:"entered_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	ClosePrice    *float64   `json:"close_price,omitempty"`
	PnL           *float64   `json:"pnl,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SwapTransaction records a realized conversion between two assets. Immutable
// once written.
type SwapTransaction struct {
	ID            int64     `json:"id"`
	PositionID    *int64    `json:"position_id,omitempty"`
	TransactionID string    `json:"transaction_id"`
	FromSymbol    string    `json:"from_symbol"`
	ToSymbol      string    `json:"to_symbol"`
	FromAmount    float64   `json:"from_amount"`
	ToAmount      float64   `json:"to_amount"`
	Rate          float64   `json:"rate"`
	FeePercentage float64   `json:"fee_percentage"`
	FeeAmount     float64   `json:"fee_amount"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"created_at"`
}
