package ledger

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func buy(symbol string, amount, price float64) Event {
	return Event{Type: EventTrade, Side: SideBuy, Symbol: symbol, Amount: amount, Price: price, Timestamp: time.Now()}
}

func sell(symbol string, amount, price, fee float64) Event {
	return Event{Type: EventTrade, Side: SideSell, Symbol: symbol, Amount: amount, Price: price, Fee: fee, Timestamp: time.Now()}
}

// ============================================================================
// TEST: FIFO exactness
// ============================================================================

func TestReplay_FIFOConsumesOldestLotsFirst(t *testing.T) {
	events := []Event{
		buy("BTC", 1.0, 40000),
		buy("BTC", 1.0, 50000),
		buy("BTC", 1.0, 60000),
		sell("BTC", 1.5, 55000, 0),
	}

	result := Replay(events)

	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 profit record, got %d", len(result.Records))
	}

	// Cost basis: full oldest lot (40000) plus half of the second (25000)
	record := result.Records[0]
	if !floatEquals(record.CostBasis, 65000, 1e-9) {
		t.Errorf("Expected cost basis 65000, got %.2f", record.CostBasis)
	}

	// Profit: 1.5 * 55000 - 65000 = 17500
	if !floatEquals(record.Profit, 17500, 1e-9) {
		t.Errorf("Expected profit 17500, got %.2f", record.Profit)
	}

	// Remaining: half of the 50000 lot plus the untouched 60000 lot
	holding, ok := result.Holdings["BTC"]
	if !ok {
		t.Fatal("Expected remaining BTC holdings")
	}
	if !floatEquals(holding.Amount, 1.5, 1e-9) {
		t.Errorf("Expected remaining amount 1.5, got %.4f", holding.Amount)
	}
	expectedAvg := (0.5*50000 + 1.0*60000) / 1.5
	if !floatEquals(holding.AverageCost, expectedAvg, 1e-9) {
		t.Errorf("Expected average cost %.2f, got %.2f", expectedAvg, holding.AverageCost)
	}
}

func TestReplay_SimpleRoundTrip(t *testing.T) {
	events := []Event{
		buy("BTC", 1.0, 50000),
		sell("BTC", 1.0, 55000, 10),
	}

	result := Replay(events)

	if !floatEquals(result.RealizedProfit, 4990, 1e-9) {
		t.Errorf("Expected realized profit 4990, got %.2f", result.RealizedProfit)
	}
	if !floatEquals(result.TotalFees, 10, 1e-9) {
		t.Errorf("Expected fees 10, got %.2f", result.TotalFees)
	}
	if result.ProfitableEvents != 1 || result.LosingEvents != 0 {
		t.Errorf("Expected 1 profitable / 0 losing, got %d / %d", result.ProfitableEvents, result.LosingEvents)
	}
	if _, ok := result.Holdings["BTC"]; ok {
		t.Error("Expected no remaining BTC holdings")
	}

	record := result.Records[0]
	if !floatEquals(record.ProfitPercent, 4990.0/50000*100, 1e-9) {
		t.Errorf("Unexpected profit percent %.4f", record.ProfitPercent)
	}
}

// ============================================================================
// TEST: Oversell shortfall
// ============================================================================

func TestReplay_SellBeyondHoldingsFlagsShortfall(t *testing.T) {
	events := []Event{
		buy("ETH", 1.0, 3000),
		sell("ETH", 2.0, 3100, 0),
	}

	result := Replay(events)

	record := result.Records[0]
	if !floatEquals(record.Shortfall, 1.0, 1e-9) {
		t.Errorf("Expected shortfall 1.0, got %.4f", record.Shortfall)
	}
	// The uncovered amount has zero cost basis: proceeds 6200 - basis 3000
	if !floatEquals(record.Profit, 3200, 1e-9) {
		t.Errorf("Expected profit 3200, got %.2f", record.Profit)
	}
}

func TestReplay_SellWithNoLotsHasZeroProfitPercent(t *testing.T) {
	result := Replay([]Event{sell("DOGE", 100, 0.1, 0)})

	record := result.Records[0]
	if record.CostBasis != 0 {
		t.Errorf("Expected zero cost basis, got %.4f", record.CostBasis)
	}
	if record.ProfitPercent != 0 {
		t.Errorf("Expected safe zero profit percent, got %.4f", record.ProfitPercent)
	}
}

// ============================================================================
// TEST: Swap legs transfer cost basis without realizing profit
// ============================================================================

func TestReplay_SwapTransfersCostBasis(t *testing.T) {
	events := []Event{
		buy("BTC", 1.0, 50000),
		{
			Type:       EventSwap,
			Timestamp:  time.Now(),
			FromSymbol: "BTC",
			ToSymbol:   "USDT",
			FromAmount: 0.5,
			ToAmount:   27500, // swapped at an effective 55000 rate
			Fee:        5,
		},
	}

	result := Replay(events)

	// No profit is booked on the swap itself
	if result.RealizedProfit != 0 {
		t.Errorf("Expected no realized profit on swap, got %.2f", result.RealizedProfit)
	}
	if len(result.Records) != 0 {
		t.Errorf("Expected no profit records, got %d", len(result.Records))
	}
	if !floatEquals(result.TotalFees, 5, 1e-9) {
		t.Errorf("Expected fees 5, got %.2f", result.TotalFees)
	}

	// Destination carries the source cost basis: 0.5 * 50000 / 27500
	usdt := result.Holdings["USDT"]
	if !floatEquals(usdt.Amount, 27500, 1e-9) {
		t.Errorf("Expected 27500 USDT, got %.2f", usdt.Amount)
	}
	if !floatEquals(usdt.AverageCost, 25000.0/27500, 1e-12) {
		t.Errorf("Expected effective unit cost %.6f, got %.6f", 25000.0/27500, usdt.AverageCost)
	}

	// Selling the destination later realizes the deferred profit
	events = append(events, sell("USDT", 27500, 1.0, 0))
	result = Replay(events)
	if !floatEquals(result.RealizedProfit, 27500-25000, 1e-9) {
		t.Errorf("Expected deferred profit 2500, got %.2f", result.RealizedProfit)
	}
}

// ============================================================================
// TEST: Idempotent replay
// ============================================================================

func TestReplay_Idempotent(t *testing.T) {
	events := []Event{
		buy("BTC", 0.3, 48000),
		buy("BTC", 0.2, 52000),
		sell("BTC", 0.4, 51000, 2),
		{
			Type: EventSwap, Timestamp: time.Now(),
			FromSymbol: "BTC", ToSymbol: "USDC",
			FromAmount: 0.05, ToAmount: 2500, Fee: 1,
		},
		buy("ETH", 2.0, 3000),
		sell("ETH", 1.0, 2900, 1),
	}

	first := Replay(events)
	second := Replay(events)

	if first.RealizedProfit != second.RealizedProfit {
		t.Errorf("Realized profit differs between replays: %.6f vs %.6f", first.RealizedProfit, second.RealizedProfit)
	}
	if first.TotalFees != second.TotalFees {
		t.Errorf("Fees differ between replays: %.6f vs %.6f", first.TotalFees, second.TotalFees)
	}
	if !reflect.DeepEqual(first.Holdings, second.Holdings) {
		t.Errorf("Holdings differ between replays: %+v vs %+v", first.Holdings, second.Holdings)
	}
	if first.ProfitableEvents != second.ProfitableEvents || first.LosingEvents != second.LosingEvents {
		t.Error("Win/loss counts differ between replays")
	}
}

// ============================================================================
// TEST: Malformed events are skipped, not fatal
// ============================================================================

func TestReplay_SkipsMalformedEvents(t *testing.T) {
	events := []Event{
		buy("BTC", 1.0, 50000),
		{Type: "garbage"},
		{Type: EventTrade, Side: "SHORT", Symbol: "BTC", Amount: 1, Price: 1},
		{Type: EventSwap, FromSymbol: "BTC", ToSymbol: "USDT", FromAmount: 0, ToAmount: 0},
		sell("BTC", 1.0, 51000, 0),
	}

	result := Replay(events)

	if !floatEquals(result.RealizedProfit, 1000, 1e-9) {
		t.Errorf("Expected profit 1000 with malformed events skipped, got %.2f", result.RealizedProfit)
	}
}
