package domain

import "time"

// MarketQuote is the last observed bid/ask for a symbol. Quotes are
// replaced whole on every successful poll and never mutated in place.
type MarketQuote struct {
	Symbol     string
	Bid        float64
	Ask        float64
	ObservedAt time.Time
}
