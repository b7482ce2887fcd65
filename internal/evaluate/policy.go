package evaluate

import (
	"math"
	"time"

	"signal-truth/internal/domain"
)

// MaxRuntime is the hard ceiling: any tracker still open after this is
// force-resolved as TIMEOUT regardless of profitability.
const MaxRuntime = 24 * time.Hour

// Decision is the terminal verdict for one tracker. Produced only by
// Decide; the evaluation loop turns it into a Result.
type Decision struct {
	Outcome       domain.Outcome
	ExitReason    string
	ExitPrice     float64
	ObservedPrice float64
	Delta         float64
}

// Decide applies the outcome policy to one tracker against one quote.
// It is a pure function of its arguments, so a fixed quote sequence
// always yields the same verdicts. The exit side is the one that would
// actually fill: bid for BUY, ask for SELL.
//
// When both levels are breached in the same snapshot, the level
// numerically closer to entry is assumed to have been touched first.
// This is a heuristic; snapshot polling cannot see intra-tick order.
// Equal distances resolve to the stop loss.
func Decide(t *domain.SignalTracker, quote domain.MarketQuote, now time.Time, autoCloseSeconds int64) (Decision, bool) {
	currentPrice := quote.Bid
	if t.Direction == domain.DirectionSell {
		currentPrice = quote.Ask
	}

	var slHit, tpHit, inProfit bool
	switch t.Direction {
	case domain.DirectionBuy:
		slHit = currentPrice <= t.StopLoss
		tpHit = currentPrice >= t.TakeProfit
		inProfit = currentPrice > t.EntryPrice
	case domain.DirectionSell:
		slHit = currentPrice >= t.StopLoss
		tpHit = currentPrice <= t.TakeProfit
		inProfit = currentPrice < t.EntryPrice
	}

	if slHit && tpHit {
		slDist := math.Abs(t.EntryPrice - t.StopLoss)
		tpDist := math.Abs(t.TakeProfit - t.EntryPrice)
		if tpDist < slDist {
			slHit = false
		} else {
			tpHit = false
		}
	}

	runtime := now.Sub(t.StartedAt)

	switch {
	case slHit:
		return Decision{
			Outcome:       domain.OutcomeLoss,
			ExitReason:    domain.ExitReasonStopLoss,
			ExitPrice:     t.StopLoss,
			ObservedPrice: currentPrice,
			Delta:         ComputeDelta(t, t.StopLoss),
		}, true

	case tpHit:
		return Decision{
			Outcome:       domain.OutcomeWin,
			ExitReason:    domain.ExitReasonTakeProfit,
			ExitPrice:     t.TakeProfit,
			ObservedPrice: currentPrice,
			Delta:         ComputeDelta(t, t.TakeProfit),
		}, true

	case runtime >= time.Duration(autoCloseSeconds)*time.Second && inProfit:
		return Decision{
			Outcome:       domain.OutcomeWin,
			ExitReason:    domain.ExitReasonTimeClose,
			ExitPrice:     currentPrice,
			ObservedPrice: currentPrice,
			Delta:         ComputeDelta(t, currentPrice),
		}, true

	case runtime >= MaxRuntime:
		// No real exit occurred; the record carries entry price and a
		// zero delta so timeouts never skew aggregate statistics.
		return Decision{
			Outcome:       domain.OutcomeTimeout,
			ExitReason:    domain.ExitReasonTimeout,
			ExitPrice:     t.EntryPrice,
			ObservedPrice: currentPrice,
			Delta:         0,
		}, true
	}

	return Decision{}, false
}
