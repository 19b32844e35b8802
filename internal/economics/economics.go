// Package economics implements the trade-economics calculations of the
// journal: option matching against a chain snapshot, probability of
// profit, credit/debit, breakeven and realized P&L.
//
// Every function here is a pure computation over its inputs. Missing
// inputs (no chain, no matched contract, open trade) yield zero values
// rather than errors, so callers can render defaults without guarding.
// Recompute-on-change is the caller's responsibility; this package
// carries no subscription or observer machinery.
package economics

import (
	"math"
	"strings"
	"time"

	"option-journal/internal/models"
)

// ContractMultiplier is the number of underlying shares represented by
// one standard equity option contract.
const ContractMultiplier = 100

// IsShort reports whether the trade type is a credit (seller) position.
func IsShort(t models.TradeType) bool {
	return strings.HasPrefix(strings.ToLower(string(t)), "short")
}

// IsCall reports whether the trade type is on the call side.
func IsCall(t models.TradeType) bool {
	return strings.Contains(strings.ToLower(string(t)), "call")
}

// direction is +1 for credit positions and -1 for debit positions. A
// short profits when the premium falls, a long when it rises; the sign
// flip encodes that.
func direction(t models.TradeType) float64 {
	if IsShort(t) {
		return 1
	}
	return -1
}

// sameDay compares two timestamps at day granularity. Expiration dates
// from different sources may carry a time-of-day component; it must not
// affect matching.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SelectMatchedOption finds the contract in the chain matching the
// target expiration, strike and side. The side is derived from the
// trade type, expirations compare at day granularity and the strike
// must match exactly; there is no tolerance band. Returns nil when the
// chain is missing, any target is unset, the chain has no entry for the
// date, or no contract sits at that exact strike.
func SelectMatchedOption(chain *models.OptionChain, expiration time.Time, strike float64, tradeType models.TradeType) *models.OptionQuote {
	if chain == nil || expiration.IsZero() || strike == 0 || tradeType == "" {
		return nil
	}
	for i := range chain.Expirations {
		entry := &chain.Expirations[i]
		if !sameDay(entry.ExpirationDate, expiration) {
			continue
		}
		quotes := entry.Puts
		if IsCall(tradeType) {
			quotes = entry.Calls
		}
		for j := range quotes {
			if quotes[j].Strike == strike {
				return &quotes[j]
			}
		}
		return nil
	}
	return nil
}

// ProposedEntryPrice returns the entry premium to prefill for a matched
// contract: the bid/ask midpoint rounded to four decimals, or 0 when
// there is no matched contract. An explicit price already fixed by the
// user wins verbatim over the midpoint.
func ProposedEntryPrice(quote *models.OptionQuote, override float64) float64 {
	if override > 0 {
		return override
	}
	if quote == nil {
		return 0
	}
	return round4((quote.Bid + quote.Ask) / 2)
}

// ListStrikesForExpiration projects every contract on the trade's side
// expiring on the target day to its strike/delta pair. Order follows
// the chain; callers sort if display order matters. Returns nil when
// the chain is absent.
func ListStrikesForExpiration(chain *models.OptionChain, expiration time.Time, tradeType models.TradeType) []models.StrikeDelta {
	if chain == nil {
		return nil
	}
	var out []models.StrikeDelta
	for i := range chain.Expirations {
		entry := &chain.Expirations[i]
		quotes := entry.Puts
		if IsCall(tradeType) {
			quotes = entry.Calls
		}
		for _, q := range quotes {
			if sameDay(q.ExpirationDate, expiration) {
				out = append(out, models.StrikeDelta{Strike: q.Strike, Delta: q.Greeks.Delta})
			}
		}
	}
	return out
}

// FindNearestStrike picks the strike closest to the spot price with a
// stable left-to-right scan: a later candidate replaces the current
// best only on strict improvement, so ties keep the earliest element.
// A winner with a non-positive strike is rejected as malformed chain
// data. Returns nil for an empty list.
func FindNearestStrike(strikes []models.StrikeDelta, spotPrice float64) *models.StrikeDelta {
	if len(strikes) == 0 {
		return nil
	}
	best := strikes[0]
	for _, s := range strikes[1:] {
		if math.Abs(s.Strike-spotPrice) < math.Abs(best.Strike-spotPrice) {
			best = s
		}
	}
	if best.Strike <= 0 {
		return nil
	}
	return &best
}

// ProbabilityOfProfit approximates the chance the position expires
// profitable, using the contract's delta as a proxy for the odds it
// finishes in the money. A seller profits when the option expires
// worthless, so the short side gets the complement. Delta is truncated
// to four decimals before the absolute value is taken. Returns a
// percentage in [0, 100]; 0 when no contract is matched.
func ProbabilityOfProfit(quote *models.OptionQuote, short bool) float64 {
	if quote == nil {
		return 0
	}
	d := math.Abs(trunc4(quote.Greeks.Delta))
	if short {
		return (1 - d) * 100
	}
	return d * 100
}

// CreditOrDebit is the total premium exchanged at entry. The sign
// carries the raw product; credit-versus-debit presentation belongs to
// the display layer.
func CreditOrDebit(price float64, contracts int) float64 {
	return price * float64(contracts) * ContractMultiplier
}

// ProfitLoss is the realized dollar P&L of a closed trade, 0 while the
// position is open.
func ProfitLoss(t *models.Trade) float64 {
	if t == nil || !t.Closed() {
		return 0
	}
	return direction(t.Type) * (t.Price - t.ExitPrice) * float64(t.Contracts) * ContractMultiplier
}

// ProfitLossPercent is the realized P&L as a percentage of the entry
// premium, 0 while the position is open. An entry price of zero cannot
// produce a finite percentage; it yields 0 rather than propagating an
// infinity into user-visible output.
func ProfitLossPercent(t *models.Trade) float64 {
	if t == nil || !t.Closed() || t.Price == 0 {
		return 0
	}
	return direction(t.Type) * ((t.Price - t.ExitPrice) / t.Price) * 100
}

// Breakeven is the underlying price at which a short position neither
// gains nor loses at expiration: strike plus premium for a short call,
// strike minus premium for a short put. Long positions return 0; the
// journal does not compute a breakeven for them.
func Breakeven(t *models.Trade) float64 {
	if t == nil || !IsShort(t.Type) {
		return 0
	}
	if IsCall(t.Type) {
		return t.Strike + t.Price
	}
	return t.Strike - t.Price
}

// MinExitPrice is the journal's profit-target guideline, not a
// guarantee: close a short at half the credit received, a long at
// twice the premium paid.
func MinExitPrice(t *models.Trade) float64 {
	if t == nil {
		return 0
	}
	if IsShort(t.Type) {
		return t.Price / 2
	}
	return t.Price * 2
}

// round4 rounds to four decimal places, half away from zero.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// trunc4 truncates toward zero at four decimal places.
func trunc4(v float64) float64 {
	return math.Trunc(v*10000) / 10000
}
