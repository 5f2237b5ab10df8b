package pnl

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// DayStatus qualifies a daily attribution result.
type DayStatus string

const (
	DayOK          DayStatus = "ok"
	DayMissingData DayStatus = "missing_data"
)

// DayReport decomposes one trading day's PnL. Realized comes from the audit
// events closed that day; Unrealized is the price move on the positions held
// at the close. When a required price is unsatisfied the day degrades to
// missing_data and the offending symbols' contributions are excluded rather
// than zero-substituted.
type DayReport struct {
	On             Date      `json:"on"`
	Realized       Money     `json:"realized"`
	Unrealized     Money     `json:"unrealized"`
	Total          Money     `json:"total"`
	Status         DayStatus `json:"status"`
	MissingSymbols []string  `json:"missingSymbols,omitempty"`
}

// AttributionEngine computes daily PnL decompositions over an immutable view
// of the inputs. The computation is pure, so results are memoized under a
// fingerprint of everything that could change them; the engine is safe to
// run on a background goroutine while the foreground renders.
type AttributionEngine struct {
	txs    []Transaction
	splits *SplitTable
	store  *PriceStore

	// checkpointDir, when set, lets long range replays resume from the
	// latest persisted checkpoint instead of the beginning of history.
	checkpointDir string

	mu   sync.Mutex
	memo map[string]DayReport
}

func NewAttributionEngine(txs []Transaction, splits *SplitTable, store *PriceStore) *AttributionEngine {
	return &AttributionEngine{
		txs:    txs,
		splits: splits,
		store:  store,
		memo:   make(map[string]DayReport),
	}
}

// WithCheckpoints enables checkpoint resume from dir.
func (e *AttributionEngine) WithCheckpoints(dir string) *AttributionEngine {
	e.checkpointDir = dir
	return e
}

// fingerprint keys a memoized day result. It covers the target day, the
// transaction set (cardinality plus last identifier after ordering), the
// split table identity and the price cell count: if any of those moved, the
// cached result is stale.
func (e *AttributionEngine) fingerprint(on Date) string {
	lastID := ""
	if n := len(e.txs); n > 0 {
		ordered := make([]Transaction, n)
		copy(ordered, e.txs)
		sortTransactions(ordered)
		lastID = ordered[n-1].ID
	}
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%s|%s|%d",
		on, len(e.txs), lastID, e.splits.Identity(), e.store.Len())))
	return fmt.Sprintf("%x", h)
}

// Day computes (or recalls) the attribution for a single day.
func (e *AttributionEngine) Day(on Date) DayReport {
	key := e.fingerprint(on)
	e.mu.Lock()
	if r, ok := e.memo[key]; ok {
		e.mu.Unlock()
		return r
	}
	e.mu.Unlock()

	reports := e.Range(on, on)
	r := DayReport{On: on, Status: DayOK}
	if len(reports) > 0 {
		r = reports[0]
	}

	e.mu.Lock()
	e.memo[key] = r
	e.mu.Unlock()
	return r
}

// groupPosition is the daily fold state of one instrument group.
type groupPosition struct {
	symbol string
	mult   int64
	cur    string
	net    Quantity
}

// Range walks the trading days of [from, to] and returns one report per day.
// The prior close used for the unrealized leg is threaded through the walk
// as an explicit carry-forward accumulator: the last satisfied close seen
// for each symbol, falling back to a store lookup at the previous trading
// day when the walk has not yet seen one.
func (e *AttributionEngine) Range(from, to Date) []DayReport {
	if to.Before(from) {
		return nil
	}

	var cp *Checkpoint
	if e.checkpointDir != "" {
		cp, _ = LatestCheckpoint(e.checkpointDir, from.Add(-1))
	}
	book := RebuildThrough(e.txs, e.splits, cp, to)

	realizedByDay := make(map[Date]Money)
	for _, m := range book.Matches {
		realizedByDay[m.CloseDate] = realizedByDay[m.CloseDate].Add(m.Realized)
	}

	// Split-adjusted, normalized trades bucketed per day for the fold.
	adjusted := e.splits.Adjust(e.txs, to)
	ordered := make([]Transaction, len(adjusted))
	copy(ordered, adjusted)
	sortTransactions(ordered)

	byDay := make(map[Date][]Transaction)
	groups := make(map[string]*groupPosition)
	position := func(tx Transaction) *groupPosition {
		g := groups[tx.groupKey()]
		if g == nil {
			g = &groupPosition{
				symbol: tx.NormalSymbol(),
				mult:   tx.EffectiveMultiplier(),
				cur:    tx.Price.Currency(),
			}
			groups[tx.groupKey()] = g
		}
		return g
	}
	for _, tx := range ordered {
		if tx.Kind == KindSplit {
			continue
		}
		tx, _, ok := normalizeTx(tx)
		if !ok {
			continue
		}
		if tx.Date().Before(from) {
			// Pre-range trades only shape the opening position.
			g := position(tx)
			g.net = g.net.Add(tx.Quantity)
			continue
		}
		if !tx.Date().After(to) {
			byDay[tx.Date()] = append(byDay[tx.Date()], tx)
		}
	}

	lastClose := make(map[string]decimal.Decimal)
	priorClose := func(symbol string, on Date) (decimal.Decimal, bool) {
		if c, ok := lastClose[symbol]; ok {
			return c, true
		}
		return e.store.CloseOn(symbol, PrevTradingDay(on))
	}

	var reports []DayReport
	for day := from; !day.After(to); day = day.Add(1) {
		for _, tx := range byDay[day] {
			g := position(tx)
			g.net = g.net.Add(tx.Quantity)
		}
		if !IsTradingDay(day) {
			continue
		}

		report := DayReport{On: day, Status: DayOK, Realized: realizedByDay[day]}
		missing := make(map[string]bool)
		var unrealized Money

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			g := groups[k]
			if g.net.IsFlat() {
				continue
			}
			closeD, okD := e.store.CloseOn(g.symbol, day)
			closeP, okP := priorClose(g.symbol, day)
			if !okD || !okP {
				missing[g.symbol] = true
				continue
			}
			delta := closeD.Sub(closeP).Mul(g.net.value).Mul(decimal.NewFromInt(g.mult))
			unrealized = unrealized.Add(M(delta, g.cur))
		}

		// Advance the carry-forward accumulator with today's satisfied closes.
		for _, g := range groups {
			if c, ok := e.store.CloseOn(g.symbol, day); ok {
				lastClose[g.symbol] = c
			}
		}

		report.Unrealized = unrealized
		report.Total = report.Realized.Add(report.Unrealized)
		if len(missing) > 0 {
			report.Status = DayMissingData
			for s := range missing {
				report.MissingSymbols = append(report.MissingSymbols, s)
			}
			sort.Strings(report.MissingSymbols)
		}
		reports = append(reports, report)
	}
	return reports
}
