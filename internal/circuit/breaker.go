// Package circuit halts bracket creation after sustained losses. The breaker
// never blocks monitoring or profit taking on existing positions, only new
// exposure.
package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// State represents the breaker state
type State string

const (
	StateClosed   State = "closed"    // Normal operation
	StateOpen     State = "open"      // New brackets halted
	StateHalfOpen State = "half_open" // Cooldown elapsed, next outcome decides
)

// Config holds circuit breaker limits
type Config struct {
	Enabled              bool    `json:"enabled"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDailyLossUSD      float64 `json:"max_daily_loss_usd"`
	CooldownMinutes      int     `json:"cooldown_minutes"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConsecutiveLosses: 5,
		MaxDailyLossUSD:      500,
		CooldownMinutes:      30,
	}
}

// Breaker tracks realized outcomes and trips when limits are breached
type Breaker struct {
	cfg Config

	mu                sync.Mutex
	state             State
	consecutiveLosses int
	dailyLoss         float64
	dailyResetAt      time.Time
	trippedAt         time.Time
	tripReason        string
	logger            zerolog.Logger
}

func NewBreaker(cfg Config) *Breaker {
	return &Breaker{
		cfg:          cfg,
		state:        StateClosed,
		dailyResetAt: nextMidnightUTC(time.Now().UTC()),
		logger:       logging.WithComponent("circuit"),
	}
}

// Allow reports whether new brackets may be created. An open breaker moves to
// half-open once the cooldown elapses.
func (b *Breaker) Allow() (bool, string) {
	if !b.cfg.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeResetDaily(time.Now().UTC())

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true, ""
	case StateOpen:
		cooldown := time.Duration(b.cfg.CooldownMinutes) * time.Minute
		if time.Since(b.trippedAt) >= cooldown {
			b.state = StateHalfOpen
			b.logger.Info().Msg("circuit breaker half-open after cooldown")
			return true, ""
		}
		return false, b.tripReason
	}
	return true, ""
}

// Record books a realized trade outcome and trips the breaker when a limit is
// crossed
func (b *Breaker) Record(pnlUSD float64) {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	b.maybeResetDaily(now)

	if pnlUSD >= 0 {
		b.consecutiveLosses = 0
		if b.state == StateHalfOpen {
			b.state = StateClosed
			b.logger.Info().Msg("circuit breaker closed after winning trade")
		}
		return
	}

	b.consecutiveLosses++
	b.dailyLoss += -pnlUSD

	switch {
	case b.cfg.MaxConsecutiveLosses > 0 && b.consecutiveLosses >= b.cfg.MaxConsecutiveLosses:
		b.trip(now, fmt.Sprintf("%d consecutive losing trades", b.consecutiveLosses))
	case b.cfg.MaxDailyLossUSD > 0 && b.dailyLoss >= b.cfg.MaxDailyLossUSD:
		b.trip(now, fmt.Sprintf("daily loss %.2f USD exceeds limit %.2f", b.dailyLoss, b.cfg.MaxDailyLossUSD))
	case b.state == StateHalfOpen:
		b.trip(now, "losing trade during half-open probe")
	}
}

// Status returns the current state and trip reason
func (b *Breaker) Status() (State, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.tripReason
}

func (b *Breaker) trip(now time.Time, reason string) {
	b.state = StateOpen
	b.trippedAt = now
	b.tripReason = reason
	b.logger.Warn().Str("reason", reason).Msg("circuit breaker tripped")
}

func (b *Breaker) maybeResetDaily(now time.Time) {
	if now.Before(b.dailyResetAt) {
		return
	}
	b.dailyLoss = 0
	b.dailyResetAt = nextMidnightUTC(now)
}

func nextMidnightUTC(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
