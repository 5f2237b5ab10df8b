package pnl

import (
	"crypto/sha1"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SplitEvent rescales a symbol's historical quantities and prices. A 4:1
// split has Ratio 4: transactions dated before Effective get their quantity
// multiplied and their price divided by the ratio, so the notional value
// (quantity times price) is invariant.
type SplitEvent struct {
	Symbol    string          `json:"symbol"`
	Effective Date            `json:"effective"`
	Ratio     decimal.Decimal `json:"ratio"`
}

// SplitTable holds the known split events, ordered by effective date.
type SplitTable struct {
	events []SplitEvent
}

// NewSplitTable builds a table from events in any order.
func NewSplitTable(events ...SplitEvent) *SplitTable {
	t := &SplitTable{events: append([]SplitEvent(nil), events...)}
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Effective.Before(t.events[j].Effective)
	})
	return t
}

// Events returns the ordered split events.
func (t *SplitTable) Events() []SplitEvent {
	if t == nil {
		return nil
	}
	return t.events
}

// Identity returns a stable fingerprint of the table contents, used to key
// memoized attribution results.
func (t *SplitTable) Identity() string {
	h := sha1.New()
	for _, e := range t.Events() {
		fmt.Fprintf(h, "%s|%s|%s;", e.Symbol, e.Effective, e.Ratio)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ratioFor returns the cumulative split ratio to apply to a transaction of
// the given symbol on the given day. The optional cutoff bounds which splits
// are considered; a zero cutoff considers them all.
func (t *SplitTable) ratioFor(symbol string, on, cutoff Date) decimal.Decimal {
	ratio := decimal.NewFromInt(1)
	for _, e := range t.Events() {
		if e.Symbol != symbol {
			continue
		}
		if !cutoff.IsZero() && e.Effective.After(cutoff) {
			continue
		}
		if on.Before(e.Effective) {
			ratio = ratio.Mul(e.Ratio)
		}
	}
	return ratio
}

// Adjust returns a copy of txs with every transaction dated before a split's
// effective date rescaled by the cumulative ratio. The input slice is never
// modified.
func (t *SplitTable) Adjust(txs []Transaction, cutoff Date) []Transaction {
	if t == nil || len(t.Events()) == 0 {
		return txs
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	one := decimal.NewFromInt(1)
	for i := range out {
		ratio := t.ratioFor(out[i].NormalSymbol(), out[i].Date(), cutoff)
		if ratio.Equal(one) {
			continue
		}
		out[i].Quantity = out[i].Quantity.Mul(Q(ratio))
		out[i].Price = out[i].Price.Div(Q(ratio))
	}
	return out
}
