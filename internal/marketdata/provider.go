// Package marketdata supplies bid/ask quotes to the evaluation loop.
// Providers share one contract: Refresh pulls fresh data (or does
// nothing for streaming providers) and Quote serves the last good value
// from a cache that is only ever replaced, never mutated in place.
package marketdata

import (
	"context"
	"sync"

	"signal-truth/internal/domain"
)

// Provider is the injected market-data dependency of the evaluation
// loop. A failed Refresh leaves the cache untouched; a symbol the feed
// has never quoted is simply absent (ok == false), never synthesized.
type Provider interface {
	Refresh(ctx context.Context) error
	Quote(symbol string) (domain.MarketQuote, bool)
}

// quoteCache holds the last successful quote per symbol.
type quoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.MarketQuote
}

func newQuoteCache() *quoteCache {
	return &quoteCache{quotes: make(map[string]domain.MarketQuote)}
}

// put replaces the cached quote for a symbol with a fresh snapshot.
func (c *quoteCache) put(q domain.MarketQuote) {
	if q.Symbol == "" || q.Bid <= 0 || q.Ask <= 0 {
		return
	}
	c.mu.Lock()
	c.quotes[q.Symbol] = q
	c.mu.Unlock()
}

// get returns the cached quote for a symbol, if any.
func (c *quoteCache) get(symbol string) (domain.MarketQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}
