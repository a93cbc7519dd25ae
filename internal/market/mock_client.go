package market

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// MockClient simulates market data for dry runs and tests. Prices follow a
// deterministic oscillation around a configurable base so cycles are repeatable.
type MockClient struct {
	mu         sync.RWMutex
	basePrices map[string]float64
	balances   map[string]float64
	tick       int64
}

var _ DataSource = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{
		basePrices: map[string]float64{
			"BTCUSDT": 50000,
			"ETHUSDT": 3000,
			"BNBUSDT": 500,
		},
		balances: map[string]float64{
			"BTC":  0.5,
			"ETH":  5,
			"USDT": 10000,
		},
	}
}

// SetBasePrice overrides the simulated base price for a symbol
func (m *MockClient) SetBasePrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.basePrices[symbol] = price
}

// SetBalance overrides a simulated asset balance
func (m *MockClient) SetBalance(asset string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = amount
}

func (m *MockClient) base(symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.basePrices[symbol]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown mock symbol: %s", symbol)
}

func (m *MockClient) GetCurrentPrice(symbol string) (float64, error) {
	base, err := m.base(symbol)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.tick++
	tick := m.tick
	m.mu.Unlock()

	// Oscillate within roughly +/-1% of base
	return base * (1 + 0.01*math.Sin(float64(tick)/7)), nil
}

func (m *MockClient) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	base, err := m.base(symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	step := int64(60_000)

	klines := make([]Kline, limit)
	for i := 0; i < limit; i++ {
		phase := float64(i) / 5
		close := base * (1 + 0.008*math.Sin(phase))
		open := base * (1 + 0.008*math.Sin(phase-0.2))
		high := math.Max(open, close) * 1.002
		low := math.Min(open, close) * 0.998
		openTime := now - int64(limit-i)*step

		klines[i] = Kline{
			OpenTime:         openTime,
			Open:             open,
			High:             high,
			Low:              low,
			Close:            close,
			Volume:           1000 + 200*math.Sin(phase*2),
			CloseTime:        openTime + step - 1,
			QuoteAssetVolume: (1000 + 200*math.Sin(phase*2)) * close,
			NumberOfTrades:   100,
		}
	}

	return klines, nil
}

func (m *MockClient) Get24hrTickers() ([]Ticker24hr, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tickers := make([]Ticker24hr, 0, len(m.basePrices))
	for symbol, price := range m.basePrices {
		tickers = append(tickers, Ticker24hr{
			Symbol:      symbol,
			LastPrice:   price,
			Volume:      50000,
			QuoteVolume: 50000 * price,
		})
	}
	// Stablecoin cross pairs so the ranker has something to rank
	tickers = append(tickers,
		Ticker24hr{Symbol: "BTCUSDC", LastPrice: 50000, Volume: 20000, QuoteVolume: 20000 * 50000},
		Ticker24hr{Symbol: "BTCFDUSD", LastPrice: 50000, Volume: 8000, QuoteVolume: 8000 * 50000},
	)
	return tickers, nil
}

func (m *MockClient) GetBalance(asset string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[asset], nil
}
