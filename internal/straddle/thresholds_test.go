package straddle

import (
	"math"
	"testing"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// ============================================================================
// TEST: Entry level geometry
// ============================================================================

func TestCalculateEntryLevels_BracketAroundPrice(t *testing.T) {
	levels, err := CalculateEntryLevels(50000, 0.01, 0.012, 0.015)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for name, h := range map[string]HorizonLevels{
		"short": levels.Short, "medium": levels.Medium, "long": levels.Long,
	} {
		if h.Buy <= 50000 {
			t.Errorf("%s buy %.2f should be above current price", name, h.Buy)
		}
		if h.Sell >= 50000 || h.Sell <= 0 {
			t.Errorf("%s sell %.2f should be below current price and positive", name, h.Sell)
		}
	}
}

func TestCalculateEntryLevels_HorizonRatios(t *testing.T) {
	// 0.003 avg vol lands in the low regime (scale 150), basePct 0.45 sits
	// inside the clamp band so the ratios come through exactly
	levels, err := CalculateEntryLevels(100, 0.003, 0.003, 0.003)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if levels.Regime != RegimeLow {
		t.Fatalf("Expected low regime, got %s", levels.Regime)
	}
	if !floatEquals(levels.Short.BuyPct, 0.45, 1e-9) {
		t.Errorf("Expected short buy pct 0.45, got %.4f", levels.Short.BuyPct)
	}
	if !floatEquals(levels.Medium.BuyPct, levels.Short.BuyPct*2, 1e-9) {
		t.Errorf("Medium buy pct should be 2x short: %.4f vs %.4f", levels.Medium.BuyPct, levels.Short.BuyPct)
	}
	if !floatEquals(levels.Long.BuyPct, levels.Short.BuyPct*3, 1e-9) {
		t.Errorf("Long buy pct should be 3x short: %.4f vs %.4f", levels.Long.BuyPct, levels.Short.BuyPct)
	}
	for _, h := range []HorizonLevels{levels.Short, levels.Medium, levels.Long} {
		if !floatEquals(h.SellPct, h.BuyPct*3, 1e-9) {
			t.Errorf("Sell pct should be 3x buy pct: %.4f vs %.4f", h.SellPct, h.BuyPct)
		}
	}
}

func TestCalculateEntryLevels_RegimeClassification(t *testing.T) {
	cases := []struct {
		vol    float64
		regime string
	}{
		{0.003, RegimeLow},
		{0.01, RegimeMedium},
		{0.05, RegimeHigh},
	}

	for _, tc := range cases {
		levels, err := CalculateEntryLevels(100, tc.vol, tc.vol, tc.vol)
		if err != nil {
			t.Fatalf("Unexpected error for vol %f: %v", tc.vol, err)
		}
		if levels.Regime != tc.regime {
			t.Errorf("Vol %f: expected regime %s, got %s", tc.vol, tc.regime, levels.Regime)
		}
	}
}

func TestCalculateEntryLevels_NegativeVolTreatedAsZero(t *testing.T) {
	levels, err := CalculateEntryLevels(100, -0.5, -0.1, -0.2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Zero base vol clamps to the regime floor, bracket still valid
	if levels.BaseVol != 0 {
		t.Errorf("Expected base vol 0, got %f", levels.BaseVol)
	}
	if levels.Short.Buy <= 100 || levels.Short.Sell >= 100 {
		t.Error("Bracket should still straddle the price with zero vol")
	}
}

func TestCalculateEntryLevels_NaNVolFallsBack(t *testing.T) {
	levels, err := CalculateEntryLevels(100, math.NaN(), 0.01, 0.01)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !levels.Fallback {
		t.Fatal("Expected fallback levels for NaN vol input")
	}

	wantBuy := [3]float64{1.0, 1.5, 2.0}
	wantSell := [3]float64{2.0, 3.0, 4.0}
	horizons := [3]HorizonLevels{levels.Short, levels.Medium, levels.Long}
	for i, h := range horizons {
		if !floatEquals(h.BuyPct, wantBuy[i], 1e-9) {
			t.Errorf("Horizon %d: expected fallback buy pct %.1f, got %.4f", i, wantBuy[i], h.BuyPct)
		}
		if !floatEquals(h.SellPct, wantSell[i], 1e-9) {
			t.Errorf("Horizon %d: expected fallback sell pct %.1f, got %.4f", i, wantSell[i], h.SellPct)
		}
	}
}

func TestCalculateEntryLevels_RejectsNonPositivePrice(t *testing.T) {
	if _, err := CalculateEntryLevels(0, 0.01, 0.01, 0.01); err == nil {
		t.Error("Expected error for zero price")
	}
	if _, err := CalculateEntryLevels(-5, 0.01, 0.01, 0.01); err == nil {
		t.Error("Expected error for negative price")
	}
}

// ============================================================================
// TEST: Position params
// ============================================================================

func TestCalculatePositionParams_Directions(t *testing.T) {
	up, err := CalculatePositionParams(100, 2, 1, DirectionUp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !floatEquals(up.TakeProfit, 102, 1e-9) || !floatEquals(up.StopLoss, 99, 1e-9) {
		t.Errorf("UP: expected TP 102 / SL 99, got %.2f / %.2f", up.TakeProfit, up.StopLoss)
	}

	down, err := CalculatePositionParams(100, 2, 1, DirectionDown)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !floatEquals(down.TakeProfit, 98, 1e-9) || !floatEquals(down.StopLoss, 101, 1e-9) {
		t.Errorf("DOWN: expected TP 98 / SL 101, got %.2f / %.2f", down.TakeProfit, down.StopLoss)
	}
}

func TestCalculatePositionParams_Validation(t *testing.T) {
	if _, err := CalculatePositionParams(0, 2, 1, DirectionUp); err == nil {
		t.Error("Expected error for zero entry price")
	}
	if _, err := CalculatePositionParams(100, 0, 1, DirectionUp); err == nil {
		t.Error("Expected error for zero tp pct")
	}
	if _, err := CalculatePositionParams(100, 2, 1, "SIDEWAYS"); err == nil {
		t.Error("Expected error for invalid direction")
	}
}
