package pnl

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

// TradeMatch is one audit event: a quantity of an open lot closed by an
// offsetting trade. The trail is append-only and feeds both win/loss
// statistics and daily attribution.
type TradeMatch struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Asset      AssetType `json:"asset"`
	OpenDate   Date      `json:"open"`
	CloseDate  Date      `json:"close"`
	OpenPrice  Money     `json:"openPrice"`
	ClosePrice Money     `json:"closePrice"`
	Quantity   Quantity  `json:"quantity"` // matched quantity, always positive
	Realized   Money     `json:"realized"`
	Multiplier int64     `json:"multiplier"`
}

// Counters aggregates what a rebuild read and what it did with it.
type Counters struct {
	Read        int // transactions seen
	Used        int // transactions that moved a lot queue
	Skipped     int // transactions at or before the checkpoint date
	SplitRows   int // explicit split rows dropped (splits apply structurally)
	Anomalies   int // transactions excluded or repaired for data quality
	ZeroDropped int // groups whose net quantity returned to (near) zero
}

// Book is the output of one ledger rebuild: all open holdings, the audit
// trail of the replayed range, and cumulative lifetime metrics.
type Book struct {
	Holdings map[string]*Holding // keyed by instrument group
	Matches  []TradeMatch        // chronological
	Counters Counters

	// Lifetime metrics, carried across checkpoints.
	LifetimeRealized Money
	Wins             int
	Losses           int
}

// HoldingBySymbol returns the holding whose normalized symbol matches, or nil.
// When several groups share a symbol (a stock and its options) the stock wins.
func (b *Book) HoldingBySymbol(symbol string) *Holding {
	var found *Holding
	for _, h := range b.Holdings {
		if h.Symbol != symbol {
			continue
		}
		if h.Asset == AssetStock {
			return h
		}
		found = h
	}
	return found
}

// SortedHoldings returns the holdings ordered by symbol then contract key.
func (b *Book) SortedHoldings() []*Holding {
	out := make([]*Holding, 0, len(b.Holdings))
	for _, h := range b.Holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].ContractKey < out[j].ContractKey
	})
	return out
}

// groupState is the in-flight lot inventory of one instrument group.
// A group never holds long and short lots at the same time: a buy always
// exhausts the short queue before opening a long lot, and vice versa.
type groupState struct {
	holding *Holding
	longs   lots
	shorts  lots
}

// Rebuild replays the full transaction history into a Book. Split events are
// applied structurally before matching. A nil checkpoint replays from empty
// state; otherwise the lot queues and lifetime metrics are seeded from the
// checkpoint and only transactions dated after it are replayed. Both paths
// produce identical holdings and PnL.
func Rebuild(txs []Transaction, splits *SplitTable, from *Checkpoint) *Book {
	return RebuildThrough(txs, splits, from, Date{})
}

// RebuildThrough is Rebuild bounded to transactions dated on or before
// `through` (zero means unbounded). The bound also acts as the split cutoff:
// a split effective after `through` must not rescale the history being viewed.
func RebuildThrough(txs []Transaction, splits *SplitTable, from *Checkpoint, through Date) *Book {
	book := &Book{Holdings: make(map[string]*Holding)}
	groups := make(map[string]*groupState)

	if from != nil {
		seedFromCheckpoint(book, groups, from)
	}

	adjusted := splits.Adjust(txs, through)
	ordered := make([]Transaction, len(adjusted))
	copy(ordered, adjusted)
	sortTransactions(ordered)

	for _, tx := range ordered {
		book.Counters.Read++

		if !through.IsZero() && tx.Date().After(through) {
			continue
		}
		if from != nil && !tx.Date().After(from.On) {
			book.Counters.Skipped++
			continue
		}
		if tx.Kind == KindSplit {
			// The split's effect is already applied by the SplitTable;
			// replaying the row as a trade would double-count it.
			book.Counters.SplitRows++
			continue
		}

		tx, notes, ok := normalizeTx(tx)
		if !ok {
			book.Counters.Anomalies++
			continue
		}

		g := groups[tx.groupKey()]
		if g == nil {
			g = &groupState{holding: &Holding{
				Symbol:      tx.NormalSymbol(),
				Asset:       tx.Asset,
				ContractKey: tx.ContractKey,
				Multiplier:  tx.EffectiveMultiplier(),
			}}
			groups[tx.groupKey()] = g
		}
		for _, n := range notes {
			g.holding.note("%s", n)
			book.Counters.Anomalies++
		}

		book.apply(g, tx)
		book.Counters.Used++
	}

	finalize(book, groups)
	return book
}

// normalizeTx validates a transaction and applies the quick fixes the import
// pipeline is allowed to make. It returns the fixed transaction, the notes
// describing each fix, and false when the transaction must be excluded.
func normalizeTx(tx Transaction) (Transaction, []string, bool) {
	if tx.NormalSymbol() == "" || tx.Quantity.IsZero() || tx.Price.IsZero() || tx.Time.IsZero() {
		log.Printf("excluding transaction %q: missing symbol, quantity, price or timestamp", tx.ID)
		return tx, nil, false
	}

	var notes []string
	if tx.Asset == "" {
		tx.Asset = AssetStock
		notes = append(notes, fmt.Sprintf("%s: missing asset type, assumed stock", tx.Date()))
	}
	if tx.Multiplier == 0 && tx.Asset == AssetOption {
		tx.Multiplier = 100
		notes = append(notes, fmt.Sprintf("%s: missing option multiplier, assumed 100", tx.Date()))
	}
	switch tx.Side {
	case "":
		if tx.Quantity.IsPositive() {
			tx.Side = SideBuy
		} else {
			tx.Side = SideSell
		}
		notes = append(notes, fmt.Sprintf("%s: missing side, inferred %s from quantity sign", tx.Date(), tx.Side))
	case SideBuy:
		if tx.Quantity.IsNegative() {
			tx.Quantity = tx.Quantity.Neg()
			notes = append(notes, fmt.Sprintf("%s: BUY with negative quantity, sign corrected", tx.Date()))
		}
	case SideSell:
		if tx.Quantity.IsPositive() {
			tx.Quantity = tx.Quantity.Neg()
			notes = append(notes, fmt.Sprintf("%s: SELL with positive quantity, sign corrected", tx.Date()))
		}
	default:
		log.Printf("excluding transaction %q: unknown side %q", tx.ID, tx.Side)
		return tx, nil, false
	}
	return tx, notes, true
}

// apply matches one trade against the group's opposing lot queue, oldest lot
// first, and opens a new lot with whatever quantity is left. Selling into an
// empty book is not an error: the leftover simply opens a short lot.
func (b *Book) apply(g *groupState, tx Transaction) {
	mult := Q(tx.EffectiveMultiplier())
	qty := tx.Quantity.Abs()

	var fills []fill
	var unmatched Quantity
	if tx.Quantity.IsPositive() {
		fills, g.shorts, unmatched = g.shorts.consume(qty)
	} else {
		fills, g.longs, unmatched = g.longs.consume(qty)
	}

	for _, f := range fills {
		var perUnit Money
		if tx.Quantity.IsPositive() {
			// Buying back a short: entry price minus cover price.
			perUnit = f.lot.Price.Sub(tx.Price)
		} else {
			// Selling a long: sale price minus entry price.
			perUnit = tx.Price.Sub(f.lot.Price)
		}
		realized := perUnit.Mul(f.matched).Mul(mult)

		m := TradeMatch{
			Symbol:     tx.NormalSymbol(),
			Asset:      tx.Asset,
			OpenDate:   DateOf(f.lot.Time),
			CloseDate:  tx.Date(),
			OpenPrice:  f.lot.Price,
			ClosePrice: tx.Price,
			Quantity:   f.matched,
			Realized:   realized,
			Multiplier: tx.EffectiveMultiplier(),
		}
		m.ID = matchID(m, f.lot.Time, tx.Time)
		b.Matches = append(b.Matches, m)

		g.holding.Realized = g.holding.Realized.Add(realized)
		b.LifetimeRealized = b.LifetimeRealized.Add(realized)
		if realized.IsPositive() {
			b.Wins++
		} else if realized.IsNegative() {
			b.Losses++
		}
	}

	if unmatched.IsPositive() {
		open := Lot{Quantity: unmatched, Price: tx.Price, Time: tx.Time}
		if tx.Quantity.IsPositive() {
			g.longs = append(g.longs, open)
		} else {
			open.Quantity = open.Quantity.Neg()
			g.shorts = append(g.shorts, open)
		}
	}
}

// finalize folds the group states into holdings, dropping flat groups.
func finalize(book *Book, groups map[string]*groupState) {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		g := groups[k]
		net := g.longs.total().Add(g.shorts.total())
		if net.IsFlat() {
			book.Counters.ZeroDropped++
			continue
		}
		h := g.holding
		h.NetQuantity = net
		h.CostBasis = g.longs.costBasis().Add(g.shorts.costBasis())
		h.CostPerUnit = h.CostBasis.Div(net)
		if net.IsPositive() {
			h.Side = Long
		} else {
			h.Side = Short
		}
		h.Lots = append(append([]Lot(nil), g.longs...), g.shorts...)
		book.Holdings[k] = h
	}
}

// matchID derives a stable identifier for an audit event. The ID must be
// reproducible across full and checkpoint-resumed replays, so it is a ULID
// whose entropy comes from the match content rather than a random source.
func matchID(m TradeMatch, openTime, closeTime time.Time) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d|%s|%s|%s",
		m.Symbol, openTime.UnixMilli(), closeTime.UnixMilli(), m.Quantity, m.OpenPrice, m.ClosePrice)))
	id, err := ulid.New(ulid.Timestamp(closeTime.UTC()), bytes.NewReader(h[:]))
	if err != nil {
		// Only reachable if the close time predates the ULID epoch.
		return fmt.Sprintf("%x", h[:8])
	}
	return id.String()
}
