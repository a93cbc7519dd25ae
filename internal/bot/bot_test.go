package bot

import (
	"context"
	"testing"
	"time"

	"straddle-trading-bot/internal/straddle"
)

// A disabled engine short-circuits before touching any collaborator, which is
// all the scheduler test needs.
func disabledEngine() *straddle.Engine {
	return straddle.NewEngine(straddle.Config{Enabled: false}, nil, nil, nil, nil, nil)
}

func TestBot_RunsImmediateCyclePerSymbol(t *testing.T) {
	results := make(chan *straddle.CycleResult, 10)
	b := New(disabledEngine(), []string{"BTCUSDT", "ETHUSDT"}, 3600, func(r *straddle.CycleResult) {
		results <- r
	})

	b.Start(context.Background())
	defer b.Stop()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			seen[r.Symbol] = true
			if r.Status != straddle.StatusDisabled {
				t.Errorf("Expected DISABLED from disabled engine, got %s", r.Status)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for initial cycles")
		}
	}
	if !seen["BTCUSDT"] || !seen["ETHUSDT"] {
		t.Errorf("Expected a cycle for each symbol, saw %v", seen)
	}
}

func TestBot_StopWaitsAndIsIdempotent(t *testing.T) {
	b := New(disabledEngine(), []string{"BTCUSDT"}, 3600, nil)

	b.Start(context.Background())
	if !b.Running() {
		t.Fatal("Bot should be running after Start")
	}

	b.Start(context.Background()) // Second start is a no-op

	b.Stop()
	if b.Running() {
		t.Error("Bot should not be running after Stop")
	}
	b.Stop() // Second stop is a no-op
}
