package pnl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fetchCall struct {
	on      Date
	symbols []string
}

// fakeFetcher records calls and answers with a configurable handler.
type fakeFetcher struct {
	calls   []fetchCall
	handler func(on Date, symbols []string) (*BackfillResult, error)
}

func (f *fakeFetcher) FetchClose(_ context.Context, on Date, symbols []string) (*BackfillResult, error) {
	f.calls = append(f.calls, fetchCall{on: on, symbols: append([]string(nil), symbols...)})
	if f.handler != nil {
		return f.handler(on, symbols)
	}
	outcomes := make(map[string]SymbolOutcome, len(symbols))
	for _, s := range symbols {
		outcomes[s] = SymbolOutcome{Close: decimal.NewFromInt(100), Status: StatusOK, Provider: "fake"}
	}
	return &BackfillResult{Outcomes: outcomes}, nil
}

func fastConfig() HealConfig {
	cfg := DefaultHealConfig()
	cfg.RequestsPerSecond = 10000
	return cfg
}

func newTestController(store *PriceStore, fetcher BackfillFetcher, tasks []GapTask, cfg HealConfig) *AutoHealController {
	return NewAutoHealController(store, fetcher, func() []GapTask {
		var live []GapTask
		for _, t := range tasks {
			if !store.Satisfied(t.Symbol, t.On) {
				live = append(live, t)
			}
		}
		return live
	}, cfg)
}

func TestHealOldestDayFirstAndChunking(t *testing.T) {
	store := NewPriceStore()
	fetcher := &fakeFetcher{}

	var tasks []GapTask
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		tasks = append(tasks, GapTask{On: MustParseDate("2024-01-05"), Symbol: s})
	}
	tasks = append(tasks, GapTask{On: MustParseDate("2024-01-08"), Symbol: "Z"})

	cfg := fastConfig()
	c := newTestController(store, fetcher, tasks, cfg)

	n, err := c.Heal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("dispatches = %d, want 3 (10+2 for the old day, 1 for the new)", n)
	}
	if len(fetcher.calls[0].symbols) != 10 || fetcher.calls[0].on != MustParseDate("2024-01-05") {
		t.Errorf("first call = %+v, want 10 symbols on the oldest day", fetcher.calls[0])
	}
	if len(fetcher.calls[1].symbols) != 2 {
		t.Errorf("second call = %+v, want the 2-symbol remainder", fetcher.calls[1])
	}
	if fetcher.calls[2].on != MustParseDate("2024-01-08") {
		t.Errorf("third call = %+v, want the newer day", fetcher.calls[2])
	}

	// All cells healed to ok with the provider stamped.
	r, ok := store.Get("A", MustParseDate("2024-01-05"))
	if !ok || r.Status != StatusOK || r.Provider != "fake" {
		t.Errorf("healed cell = %+v, want ok from fake", r)
	}
}

func TestHealIdempotentAndDeduped(t *testing.T) {
	store := NewPriceStore()
	day := MustParseDate("2024-01-05")
	fetcher := &fakeFetcher{handler: func(on Date, symbols []string) (*BackfillResult, error) {
		// Provider claims nothing transiently: cells go to error, tasks stay open.
		return nil, errors.New("HTTP 503")
	}}
	tasks := []GapTask{{On: day, Symbol: "AAPL"}}
	c := newTestController(store, fetcher, tasks, fastConfig())

	if _, err := c.Heal(context.Background()); err == nil {
		t.Fatal("expected the transient fetch failure to surface")
	}
	if r, _ := store.Get("AAPL", day); r.Status != StatusError {
		t.Fatalf("cell = %+v, want status error after the failed fetch", r)
	}

	// Within the retry window the same pair must not be re-dispatched.
	if _, err := c.Heal(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("calls = %d, want 1 (dedup window holds the retry)", len(fetcher.calls))
	}

	// Reset clears the window and the pair is owed a retry again.
	c.Reset()
	c.Heal(context.Background())
	if len(fetcher.calls) != 2 {
		t.Errorf("calls after reset = %d, want 2", len(fetcher.calls))
	}
}

func TestHealSkipsSatisfiedAndTerminalCells(t *testing.T) {
	store := NewPriceStore()
	day := MustParseDate("2024-01-05")
	if err := store.Upsert(okRecord("DONE", "2024-01-05", 10)); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(PriceRecord{Symbol: "GONE", On: day, Status: StatusMissingVendor}); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{}
	tasks := []GapTask{{On: day, Symbol: "DONE"}, {On: day, Symbol: "GONE"}}
	c := newTestController(store, fetcher, tasks, fastConfig())

	n, err := c.Heal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(fetcher.calls) != 0 {
		t.Errorf("dispatches = %d calls = %d, want none: ok is healed, missing_vendor needs repair", n, len(fetcher.calls))
	}
	if r, _ := store.Get("DONE", day); !r.Close.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ok cell mutated by the healer: %+v", r)
	}
}

func TestHealSessionBudgetTripsEcoMode(t *testing.T) {
	store := NewPriceStore()
	fetcher := &fakeFetcher{handler: func(on Date, symbols []string) (*BackfillResult, error) {
		return &BackfillResult{Outcomes: map[string]SymbolOutcome{}}, nil
	}}
	tasks := []GapTask{
		{On: MustParseDate("2024-01-05"), Symbol: "A"},
		{On: MustParseDate("2024-01-08"), Symbol: "B"},
		{On: MustParseDate("2024-01-09"), Symbol: "C"},
	}
	cfg := fastConfig()
	cfg.SessionBudget = 1
	c := newTestController(store, fetcher, tasks, cfg)

	n, err := c.Heal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("dispatches = %d, want 1 before the breaker trips", n)
	}
	if !c.EcoMode() {
		t.Fatal("budget exhausted but eco mode not tripped")
	}

	// Eco mode stops all automatic dispatch until an explicit reset.
	if n, _ := c.Heal(context.Background()); n != 0 {
		t.Errorf("eco mode still dispatched %d times", n)
	}
	c.Reset()
	if c.EcoMode() {
		t.Error("reset did not clear eco mode")
	}
	if n, _ := c.Heal(context.Background()); n == 0 {
		t.Error("no dispatch after reset")
	}
}

func TestHealAsyncCoolsDown(t *testing.T) {
	store := NewPriceStore()
	day := MustParseDate("2024-01-05")
	// First answer: the provider only queued the work. Every later answer
	// carries the close.
	async := true
	fetcher := &fakeFetcher{handler: func(on Date, symbols []string) (*BackfillResult, error) {
		if async {
			async = false
			return &BackfillResult{Async: true}, nil
		}
		outcomes := make(map[string]SymbolOutcome, len(symbols))
		for _, s := range symbols {
			outcomes[s] = SymbolOutcome{Close: decimal.NewFromInt(100), Status: StatusOK, Provider: "fake"}
		}
		return &BackfillResult{Outcomes: outcomes}, nil
	}}
	tasks := []GapTask{{On: day, Symbol: "AAPL"}, {On: day.Add(3), Symbol: "TSLA"}}

	// The retry window is much longer than the recheck delay, as in the
	// default tuning: the queued pair must still be claimable afterwards.
	cfg := fastConfig()
	c := newTestController(store, fetcher, tasks, cfg)
	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	n, err := c.Heal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("dispatches = %d, want 1 then cool-down", n)
	}
	if c.State() != HealCoolingDown {
		t.Fatalf("state = %s, want cooling-down", c.State())
	}
	if r, _ := store.Get("AAPL", day); r.Status != StatusPending {
		t.Fatalf("queued cell = %+v, want pending", r)
	}

	// Before the recheck time the controller stays quiet.
	if n, _ := c.Heal(context.Background()); n != 0 {
		t.Errorf("cooling-down controller dispatched %d times", n)
	}

	// Past the recheck time the queued pair is re-dispatched along with the
	// remaining day, even though the retry window has not lapsed.
	clock = clock.Add(cfg.RecheckDelay + time.Second)
	if n, _ := c.Heal(context.Background()); n != 2 {
		t.Errorf("dispatches after cool-down = %d, want the queued pair and the remaining day", n)
	}
	if r, _ := store.Get("AAPL", day); r.Status != StatusOK {
		t.Errorf("queued cell after the re-check = %+v, want ok", r)
	}
}

func TestHealRepeatedFailuresDemoteToMissingVendor(t *testing.T) {
	store := NewPriceStore()
	day := MustParseDate("2024-01-05")
	fetcher := &fakeFetcher{handler: func(on Date, symbols []string) (*BackfillResult, error) {
		return nil, errors.New("HTTP 503")
	}}
	tasks := []GapTask{{On: day, Symbol: "AAPL"}}

	cfg := fastConfig()
	cfg.MaxAttempts = 2
	c := newTestController(store, fetcher, tasks, cfg)

	// First failure: a retryable error cell with one attempt on record.
	if _, err := c.Heal(context.Background()); err == nil {
		t.Fatal("expected the fetch failure to surface")
	}
	if r, _ := store.Get("AAPL", day); r.Status != StatusError || r.Attempts != 1 {
		t.Fatalf("cell after first failure = %+v, want error with 1 attempt", r)
	}

	// Second failure, fresh session: the attempt count is spent and the cell
	// goes terminal instead of feeding a retry storm.
	c.Reset()
	if _, err := c.Heal(context.Background()); err == nil {
		t.Fatal("expected the fetch failure to surface")
	}
	r, _ := store.Get("AAPL", day)
	if r.Status != StatusMissingVendor || r.Attempts != 2 {
		t.Fatalf("cell after second failure = %+v, want missing_vendor with 2 attempts", r)
	}

	// Terminal now: a third session owes it nothing.
	c.Reset()
	n, err := c.Heal(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(fetcher.calls) != 2 {
		t.Errorf("dispatches = %d calls = %d, want no retry of a terminal cell", n, len(fetcher.calls))
	}
}

func TestHealAttemptCountSurvivesSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewPriceStore()
	day := MustParseDate("2024-01-05")
	if err := store.Upsert(PriceRecord{Symbol: "AAPL", On: day, Status: StatusError, Attempts: 2}); err != nil {
		t.Fatal(err)
	}
	if err := SavePrices(dir, store); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadPrices(dir)
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := loaded.Get("AAPL", day); r.Attempts != 2 {
		t.Errorf("attempts after reload = %d, want 2", r.Attempts)
	}
}
