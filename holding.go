package pnl

import "fmt"

// PositionSide is the direction of a holding's net position.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// Holding is the per instrument-group aggregate produced by a ledger rebuild.
// It is derived state, recomputed on each run.
type Holding struct {
	Symbol      string
	Asset       AssetType
	ContractKey string
	Multiplier  int64

	NetQuantity Quantity
	CostBasis   Money // signed total cost of the open lots
	CostPerUnit Money
	Realized    Money // cumulative realized PnL of the group
	Side        PositionSide

	Lots  []Lot    // remaining open lots, oldest first
	Notes []string // data-quality anomaly notes, in input order
}

// note records a data-quality anomaly against the holding.
func (h *Holding) note(format string, args ...any) {
	h.Notes = append(h.Notes, fmt.Sprintf(format, args...))
}

// MarketValue returns the holding's value at the given unit price.
func (h *Holding) MarketValue(price Money) Money {
	return price.Mul(h.NetQuantity).Mul(Q(h.Multiplier))
}

// UnrealizedAt returns the paper gain at the given unit price.
func (h *Holding) UnrealizedAt(price Money) Money {
	return h.MarketValue(price).Sub(h.CostBasis.Mul(Q(h.Multiplier)))
}
