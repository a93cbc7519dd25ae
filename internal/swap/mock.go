package swap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockExecutor simulates conversions at configurable rates with a flat fee.
// Used for dry runs and tests.
type MockExecutor struct {
	mu       sync.Mutex
	rates    map[string]float64 // "FROM/TO" -> rate
	feePct   float64
	failNext error
	History  []Result
}

var _ Executor = (*MockExecutor)(nil)

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		rates: map[string]float64{
			"BTC/USDT":  50000,
			"ETH/USDT":  3000,
			"BNB/USDT":  500,
			"USDT/BTC":  1.0 / 50000,
			"USDT/ETH":  1.0 / 3000,
			"USDT/BNB":  1.0 / 500,
			"USDT/USDC": 1.0,
			"USDC/USDT": 1.0,
		},
		feePct: 0.1,
	}
}

// SetRate overrides the conversion rate for a pair
func (m *MockExecutor) SetRate(fromSymbol, toSymbol string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[fromSymbol+"/"+toSymbol] = rate
	if rate > 0 {
		m.rates[toSymbol+"/"+fromSymbol] = 1 / rate
	}
}

// FailNext makes the next Swap call return the given error
func (m *MockExecutor) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockExecutor) Swap(ctx context.Context, fromSymbol, toSymbol string, amount float64) (*Result, error) {
	if err := validateRequest(fromSymbol, toSymbol, amount); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}

	rate, ok := m.rates[fromSymbol+"/"+toSymbol]
	if !ok {
		return nil, fmt.Errorf("no conversion rate for %s -> %s", fromSymbol, toSymbol)
	}

	gross := amount * rate
	fee := gross * m.feePct / 100

	result := Result{
		TransactionID: uuid.New().String(),
		FromSymbol:    fromSymbol,
		ToSymbol:      toSymbol,
		FromAmount:    amount,
		ToAmount:      gross - fee,
		Rate:          rate,
		FeePercentage: m.feePct,
		FeeAmount:     fee,
		Timestamp:     time.Now().UTC(),
	}
	m.History = append(m.History, result)
	return &result, nil
}
