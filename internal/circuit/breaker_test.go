package circuit

import (
	"testing"
	"time"
)

func TestBreaker_TripsOnConsecutiveLosses(t *testing.T) {
	b := NewBreaker(Config{
		Enabled:              true,
		MaxConsecutiveLosses: 3,
		CooldownMinutes:      30,
	})

	for i := 0; i < 2; i++ {
		b.Record(-10)
	}
	if ok, _ := b.Allow(); !ok {
		t.Fatal("Breaker should stay closed below the loss limit")
	}

	b.Record(-10)
	ok, reason := b.Allow()
	if ok {
		t.Fatal("Breaker should trip on the third consecutive loss")
	}
	if reason == "" {
		t.Error("Tripped breaker should report a reason")
	}
}

func TestBreaker_WinResetsLossStreak(t *testing.T) {
	b := NewBreaker(Config{
		Enabled:              true,
		MaxConsecutiveLosses: 3,
		CooldownMinutes:      30,
	})

	b.Record(-10)
	b.Record(-10)
	b.Record(5)
	b.Record(-10)
	b.Record(-10)

	if ok, _ := b.Allow(); !ok {
		t.Error("A winning trade should reset the consecutive loss count")
	}
}

func TestBreaker_TripsOnDailyLoss(t *testing.T) {
	b := NewBreaker(Config{
		Enabled:         true,
		MaxDailyLossUSD: 100,
		CooldownMinutes: 30,
	})

	b.Record(-60)
	b.Record(-50)

	if ok, _ := b.Allow(); ok {
		t.Error("Breaker should trip once accumulated daily loss exceeds the limit")
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := NewBreaker(Config{
		Enabled:              true,
		MaxConsecutiveLosses: 1,
		CooldownMinutes:      30,
	})

	b.Record(-10)
	if ok, _ := b.Allow(); ok {
		t.Fatal("Breaker should be open")
	}

	// Simulate the cooldown having elapsed
	b.mu.Lock()
	b.trippedAt = time.Now().UTC().Add(-time.Hour)
	b.mu.Unlock()

	if ok, _ := b.Allow(); !ok {
		t.Fatal("Breaker should allow a probe after cooldown")
	}

	state, _ := b.Status()
	if state != StateHalfOpen {
		t.Errorf("Expected half-open, got %s", state)
	}

	// A win during the probe closes it for good
	b.Record(20)
	state, _ = b.Status()
	if state != StateClosed {
		t.Errorf("Expected closed after winning probe, got %s", state)
	}
}

func TestBreaker_DisabledAlwaysAllows(t *testing.T) {
	b := NewBreaker(Config{Enabled: false, MaxConsecutiveLosses: 1})

	b.Record(-1000)
	if ok, _ := b.Allow(); !ok {
		t.Error("Disabled breaker must always allow")
	}
}
