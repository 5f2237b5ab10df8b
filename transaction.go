package pnl

import (
	"sort"
	"strings"
	"time"
)

// AssetType identifies the kind of instrument a transaction trades.
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetOption AssetType = "option"
)

// Side identifies the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Kind is the optional operation kind attached by the importer. The ledger
// only cares about KindSplit, which it drops: split effects are applied
// structurally by the SplitTable, not as trades.
type Kind string

const (
	KindTrade Kind = "trade"
	KindSplit Kind = "split"
)

// Transaction is one normalized ledger entry. It is produced by an external
// import adapter and is immutable once ingested.
type Transaction struct {
	ID          string    `json:"id,omitempty"`
	Symbol      string    `json:"symbol"`
	Asset       AssetType `json:"asset,omitempty"`
	Side        Side      `json:"side,omitempty"`
	Quantity    Quantity  `json:"quantity"` // signed: positive buys, negative sells
	Price       Money     `json:"price"`    // unit price
	Multiplier  int64     `json:"multiplier,omitempty"`
	Time        time.Time `json:"time"`
	ContractKey string    `json:"contract,omitempty"` // stable option-contract identity
	Kind        Kind      `json:"kind,omitempty"`
}

// Date returns the calendar day of the transaction.
func (t Transaction) Date() Date { return DateOf(t.Time) }

// NormalSymbol returns the upper-cased, trimmed symbol.
func (t Transaction) NormalSymbol() string {
	return strings.ToUpper(strings.TrimSpace(t.Symbol))
}

// groupKey returns the instrument-group identity of the transaction: the
// option contract key when present, else the normalized symbol, combined with
// the asset type so a stock and an option on the same underlying never share
// lot queues.
func (t Transaction) groupKey() string {
	id := t.ContractKey
	if id == "" {
		id = t.NormalSymbol()
	}
	return id + "|" + string(t.Asset)
}

// EffectiveMultiplier returns the contract multiplier, defaulting to 1.
func (t Transaction) EffectiveMultiplier() int64 {
	if t.Multiplier > 0 {
		return t.Multiplier
	}
	return 1
}

// sortTransactions orders transactions chronologically, breaking timestamp
// ties by ID so replays are deterministic regardless of input order.
func sortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Time.Equal(txs[j].Time) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Time.Before(txs[j].Time)
	})
}
