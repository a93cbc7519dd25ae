// Package bot schedules engine cycles: one ticker loop per configured symbol,
// all stopped together on shutdown.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
	"straddle-trading-bot/internal/straddle"
)

// ResultSink receives every cycle result, e.g. for WebSocket broadcast
type ResultSink func(*straddle.CycleResult)

// Bot drives the engine on a fixed interval per symbol
type Bot struct {
	engine   *straddle.Engine
	symbols  []string
	interval time.Duration
	sink     ResultSink
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func New(engine *straddle.Engine, symbols []string, intervalSeconds int, sink ResultSink) *Bot {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &Bot{
		engine:   engine,
		symbols:  symbols,
		interval: time.Duration(intervalSeconds) * time.Second,
		sink:     sink,
		logger:   logging.WithComponent("bot"),
	}
}

// Start launches one monitoring loop per symbol. Idempotent.
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	for _, symbol := range b.symbols {
		b.wg.Add(1)
		go b.monitorLoop(runCtx, symbol)
	}

	b.logger.Info().
		Strs("symbols", b.symbols).
		Dur("interval", b.interval).
		Msg("bot started")
}

// Stop cancels all loops and waits for in-flight cycles to finish
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	cancel := b.cancel
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	b.logger.Info().Msg("bot stopped")
}

// Running reports whether the loops are active
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bot) monitorLoop(ctx context.Context, symbol string) {
	defer b.wg.Done()

	// Immediate first cycle, then on the ticker
	b.runOnce(ctx, symbol)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.runOnce(ctx, symbol)
		}
	}
}

func (b *Bot) runOnce(ctx context.Context, symbol string) {
	result := b.engine.RunCycle(ctx, symbol)
	if b.sink != nil {
		b.sink(result)
	}
}
