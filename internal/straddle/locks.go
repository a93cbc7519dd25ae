package straddle

import "sync"

// symbolLocks serializes cycles per symbol. A cycle that fails to acquire the
// lock must short-circuit with SKIPPED rather than block: overlapping cycles
// for the same symbol would double-trade.
type symbolLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{held: make(map[string]bool)}
}

// TryAcquire takes the lock for symbol if free. Never blocks.
func (l *symbolLocks) TryAcquire(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[symbol] {
		return false
	}
	l.held[symbol] = true
	return true
}

// Release frees the lock for symbol. Safe to call on an unheld lock.
func (l *symbolLocks) Release(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, symbol)
}

// Held reports whether the symbol is currently locked
func (l *symbolLocks) Held(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[symbol]
}
