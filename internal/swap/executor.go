// Package swap converts holdings between assets, either through the exchange
// convert endpoint or a deterministic simulator for dry runs.
package swap

import (
	"context"
	"fmt"
	"time"
)

// Result describes a completed conversion
type Result struct {
	TransactionID string    `json:"transaction_id"`
	FromSymbol    string    `json:"from_symbol"`
	ToSymbol      string    `json:"to_symbol"`
	FromAmount    float64   `json:"from_amount"`
	ToAmount      float64   `json:"to_amount"`
	Rate          float64   `json:"rate"`
	FeePercentage float64   `json:"fee_percentage"`
	FeeAmount     float64   `json:"fee_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// Executor performs asset conversions
type Executor interface {
	Swap(ctx context.Context, fromSymbol, toSymbol string, amount float64) (*Result, error)
}

func validateRequest(fromSymbol, toSymbol string, amount float64) error {
	if fromSymbol == "" || toSymbol == "" {
		return fmt.Errorf("swap requires both symbols, got %q -> %q", fromSymbol, toSymbol)
	}
	if fromSymbol == toSymbol {
		return fmt.Errorf("cannot swap %s into itself", fromSymbol)
	}
	if amount <= 0 {
		return fmt.Errorf("swap amount must be positive, got %f", amount)
	}
	return nil
}
