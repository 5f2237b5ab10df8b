package pnl

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PriceStatus is the state of one (symbol, day) closing-price cell. Statuses
// split into two families: satisfied cells can feed valuation (possibly with
// an estimated close), retryable cells are still owed a fetch attempt.
type PriceStatus string

const (
	StatusOK            PriceStatus = "ok"             // vendor close retrieved
	StatusPending       PriceStatus = "pending"        // fetch queued or in flight
	StatusMissing       PriceStatus = "missing"        // known gap, not yet attempted
	StatusMissingVendor PriceStatus = "missing_vendor" // no provider carries the symbol
	StatusMarketClosed  PriceStatus = "market_closed"  // venue holiday, estimate carried forward
	StatusPlanLimited   PriceStatus = "plan_limited"   // vendor plan refuses the date range
	StatusNoLiquidity   PriceStatus = "no_liquidity"   // symbol traded nowhere that day
	StatusError         PriceStatus = "error"          // transient fetch failure
)

// Satisfied reports whether the status carries a usable close, real or
// estimated. Satisfied cells are never re-fetched by the healer.
func (s PriceStatus) Satisfied() bool {
	switch s {
	case StatusOK, StatusMarketClosed, StatusPlanLimited, StatusNoLiquidity:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal cells change only
// through an explicit repair.
func (s PriceStatus) Terminal() bool { return s.Satisfied() || s == StatusMissingVendor }

// Retryable reports whether the healer may schedule another fetch.
func (s PriceStatus) Retryable() bool {
	return s == StatusMissing || s == StatusPending || s == StatusError
}

// PriceRecord is one closing-price cell.
type PriceRecord struct {
	Symbol      string          `json:"symbol"`
	On          Date            `json:"on"`
	Close       decimal.Decimal `json:"close,omitempty"`
	Status      PriceStatus     `json:"status"`
	Provider    string          `json:"provider,omitempty"`
	Note        string          `json:"note,omitempty"`
	RetrievedAt time.Time       `json:"retrievedAt,omitempty"`
	// Attempts counts failed fetches of this cell across sessions, so retry
	// storms stop even though each CLI run starts a fresh controller.
	Attempts int `json:"attempts,omitempty"`
}

// Key identifies the cell: "YYYY-MM-DD_SYMBOL".
func (r PriceRecord) Key() string { return priceKey(r.Symbol, r.On) }

func priceKey(symbol string, on Date) string {
	return fmt.Sprintf("%s_%s", on, strings.ToUpper(strings.TrimSpace(symbol)))
}

// PriceStore is the in-memory closing-price database, safe for concurrent
// use. Records are loaded from and saved to per-year JSONL files so the
// store can live in a plain git repository.
type PriceStore struct {
	mu      sync.RWMutex
	records map[string]PriceRecord
	dirty   bool
}

func NewPriceStore() *PriceStore {
	return &PriceStore{records: make(map[string]PriceRecord)}
}

// Get returns the cell for (symbol, on) if one exists.
func (s *PriceStore) Get(symbol string, on Date) (PriceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[priceKey(symbol, on)]
	return r, ok
}

// Satisfied reports whether the cell exists and carries a usable close.
func (s *PriceStore) Satisfied(symbol string, on Date) bool {
	r, ok := s.Get(symbol, on)
	return ok && r.Status.Satisfied()
}

// Len returns the number of cells.
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Upsert writes a cell, enforcing the status machine:
//   - a status ok record requires a strictly positive close;
//   - an existing ok record is immutable (repair first to replace it);
//   - an existing terminal failure can only be superseded by a real close.
func (s *PriceStore) Upsert(r PriceRecord) error {
	if r.Symbol == "" || r.On.IsZero() {
		return fmt.Errorf("price record needs a symbol and a date")
	}
	if r.Status == StatusOK && !r.Close.IsPositive() {
		return fmt.Errorf("price %s: status ok requires a positive close, got %s", r.Key(), r.Close)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, exists := s.records[r.Key()]
	if exists {
		if prev.Status == StatusOK {
			return fmt.Errorf("price %s: already satisfied with a vendor close, repair it first", r.Key())
		}
		if prev.Status.Terminal() && r.Status != StatusOK {
			return fmt.Errorf("price %s: terminal status %s, only a vendor close or a repair can replace it", r.Key(), prev.Status)
		}
	}
	s.records[r.Key()] = r
	s.dirty = true
	return nil
}

// MarkPending flags a retryable or absent cell as queued for fetching.
// Satisfied and terminal cells are left alone.
func (s *PriceStore) MarkPending(symbol string, on Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := priceKey(symbol, on)
	prev, exists := s.records[key]
	if exists && !prev.Status.Retryable() {
		return
	}
	s.records[key] = PriceRecord{Symbol: strings.ToUpper(strings.TrimSpace(symbol)), On: on, Status: StatusPending, Attempts: prev.Attempts}
	s.dirty = true
}

// Repair deletes a cell so that the healer owes it a fresh fetch. This is
// the only way out of a terminal status.
func (s *PriceStore) Repair(symbol string, on Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := priceKey(symbol, on)
	if _, ok := s.records[key]; !ok {
		return false
	}
	delete(s.records, key)
	s.dirty = true
	return true
}

// CloseOn returns the close usable for valuation, false when the cell is not
// satisfied or its status carries no number (plan_limited, no_liquidity
// without an estimate).
func (s *PriceStore) CloseOn(symbol string, on Date) (decimal.Decimal, bool) {
	r, ok := s.Get(symbol, on)
	if !ok || !r.Status.Satisfied() || !r.Close.IsPositive() {
		return decimal.Decimal{}, false
	}
	return r.Close, true
}

// Records returns all cells ordered by date then symbol.
func (s *PriceStore) Records() []PriceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PriceRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].On != out[j].On {
			return out[i].On.Before(out[j].On)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Dirty reports whether the store changed since the last save or load.
func (s *PriceStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}
