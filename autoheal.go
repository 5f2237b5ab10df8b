package pnl

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// HealState is the controller's position in its dispatch cycle.
type HealState string

const (
	HealIdle        HealState = "idle"
	HealQueued      HealState = "queued"       // tasks selected, dispatch imminent
	HealInFlight    HealState = "in-flight"    // a backfill request is out
	HealCoolingDown HealState = "cooling-down" // provider queued the work, recheck later
)

// SymbolOutcome is the per-symbol result of one backfill request: either a
// close, or the reason there is none.
type SymbolOutcome struct {
	Close    decimal.Decimal
	Status   PriceStatus
	Provider string
	Note     string
}

// BackfillResult is the fetcher's answer for one (date, symbols) request.
// Async means the provider only queued the work server-side; the caller
// should cool down and re-check instead of expecting the outcomes to be
// complete.
type BackfillResult struct {
	Outcomes map[string]SymbolOutcome
	Async    bool
}

// BackfillFetcher retrieves end-of-day closes for a batch of symbols.
// Implementations must be idempotent: re-fetching an already-known
// (date, symbol) is safe.
type BackfillFetcher interface {
	FetchClose(ctx context.Context, on Date, symbols []string) (*BackfillResult, error)
}

// AutoHealController is the reactive loop that turns gap tasks into
// backfilled price cells. It never blocks foreground computation: a price it
// has not healed yet simply leaves the dependent figure in an unresolved
// status. Dedup, pacing and the session budget are all process-local state
// with an explicit lifecycle, cleared only by Reset.
type AutoHealController struct {
	store   *PriceStore
	fetcher BackfillFetcher
	gaps    func() []GapTask
	cfg     HealConfig

	limiter *rate.Limiter
	now     func() time.Time

	mu         sync.Mutex
	state      HealState
	dispatched int
	eco        bool
	recheckAt  time.Time
	dedup      *gocache.Cache // (date, symbol) pairs dispatched within RetryDelay

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewAutoHealController wires a controller over a store, a fetcher and a gap
// source. The gap source is called at the start of every pass so the
// controller always works from fresh tasks.
func NewAutoHealController(store *PriceStore, fetcher BackfillFetcher, gaps func() []GapTask, cfg HealConfig) *AutoHealController {
	return &AutoHealController{
		store:   store,
		fetcher: fetcher,
		gaps:    gaps,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		now:     time.Now,
		state:   HealIdle,
		dedup:   gocache.New(cfg.RetryDelay, cfg.RetryDelay),
	}
}

// State returns the controller's current cycle position.
func (c *AutoHealController) State() HealState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatched returns how many backfill requests went out this session.
func (c *AutoHealController) Dispatched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatched
}

// EcoMode reports whether the session budget tripped the breaker.
func (c *AutoHealController) EcoMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eco
}

// Reset clears the dedup window, the session budget and the eco breaker.
// It is the explicit user-refresh lifecycle boundary.
func (c *AutoHealController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dedup.Flush()
	c.dispatched = 0
	c.eco = false
	c.recheckAt = time.Time{}
	c.state = HealIdle
}

// claim atomically checks and marks a (date, symbol) batch against the dedup
// window and the session budget. It returns the symbols actually claimed and
// whether the budget tripped.
func (c *AutoHealController) claim(on Date, symbols []string) (claimed []string, tripped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eco {
		return nil, true
	}
	for _, s := range symbols {
		key := priceKey(s, on)
		if _, hit := c.dedup.Get(key); hit {
			continue
		}
		c.dedup.SetDefault(key, struct{}{})
		claimed = append(claimed, s)
	}
	if len(claimed) == 0 {
		return nil, false
	}
	c.dispatched++
	if c.dispatched > c.cfg.SessionBudget {
		c.eco = true
		log.Printf("autoheal: session budget of %d dispatches exhausted, entering eco mode", c.cfg.SessionBudget)
		return nil, true
	}
	c.state = HealQueued
	return claimed, false
}

// Heal runs one pass: oldest unresolved day first, batches capped and
// chunked, dedup and budget enforced. It returns the number of dispatches
// made. A cooling-down controller does nothing until its recheck time.
func (c *AutoHealController) Heal(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.eco {
		c.mu.Unlock()
		return 0, nil
	}
	if c.state == HealCoolingDown {
		if c.now().Before(c.recheckAt) {
			c.mu.Unlock()
			return 0, nil
		}
		c.state = HealIdle
	}
	c.mu.Unlock()

	tasks := c.workable(c.gaps())
	if len(tasks) == 0 {
		return 0, nil
	}

	days, byDay := GroupGapsByDay(tasks)
	dispatches := 0
	for _, day := range days {
		symbols := byDay[day]
		for len(symbols) > 0 {
			chunk := symbols
			if len(chunk) > c.cfg.BatchSize {
				chunk = chunk[:c.cfg.BatchSize]
			}
			symbols = symbols[len(chunk):]

			claimed, tripped := c.claim(day, chunk)
			if tripped {
				return dispatches, nil
			}
			if len(claimed) == 0 {
				continue
			}

			async, err := c.dispatch(ctx, day, claimed)
			if err != nil {
				return dispatches, err
			}
			dispatches++
			if async {
				// The provider queued the work server-side; one deferred
				// re-check beats hammering it for an answer it cannot give.
				// The queued pairs leave the dedup window, or the re-check
				// pass would have nothing left to claim.
				c.mu.Lock()
				c.state = HealCoolingDown
				c.recheckAt = c.now().Add(c.cfg.RecheckDelay)
				for _, s := range claimed {
					c.dedup.Delete(priceKey(s, day))
				}
				c.mu.Unlock()
				return dispatches, nil
			}
		}
	}

	c.mu.Lock()
	if c.state != HealCoolingDown {
		c.state = HealIdle
	}
	c.mu.Unlock()
	return dispatches, nil
}

// workable filters out tasks that cannot or must not be healed: already
// satisfied cells and terminal failures awaiting a manual repair.
func (c *AutoHealController) workable(tasks []GapTask) []GapTask {
	out := tasks[:0:0]
	for _, t := range tasks {
		if r, ok := c.store.Get(t.Symbol, t.On); ok && (r.Status.Satisfied() || r.Status.Terminal()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// dispatch sends one claimed batch to the fetcher and folds the outcomes
// back into the store.
func (c *AutoHealController) dispatch(ctx context.Context, on Date, symbols []string) (async bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.state = HealInFlight
	c.mu.Unlock()

	for _, s := range symbols {
		c.store.MarkPending(s, on)
	}

	res, err := c.fetcher.FetchClose(ctx, on, symbols)
	if err != nil {
		// Transient failure: demote the batch to error so the next session
		// (or a Reset) retries it. A cell that keeps failing is demoted to
		// missing_vendor once its attempt count is spent, which stops the
		// retries until a manual repair.
		for _, s := range symbols {
			prev, _ := c.store.Get(s, on)
			rec := PriceRecord{
				Symbol: s, On: on, Status: StatusError,
				Note:     fmt.Sprintf("backfill failed: %v", err),
				Attempts: prev.Attempts + 1,
			}
			if rec.Attempts >= c.cfg.MaxAttempts {
				rec.Status = StatusMissingVendor
				rec.Note = fmt.Sprintf("gave up after %d failed fetches, last: %v", rec.Attempts, err)
			}
			if upErr := c.store.Upsert(rec); upErr != nil {
				log.Printf("autoheal: recording error for %s: %v", priceKey(s, on), upErr)
			}
		}
		return false, fmt.Errorf("backfill %s: %w", on, err)
	}

	for _, s := range symbols {
		outcome, ok := res.Outcomes[s]
		if !ok {
			if res.Async {
				continue // still pending server-side
			}
			outcome = SymbolOutcome{Status: StatusMissingVendor, Note: "no provider returned data"}
		}
		rec := PriceRecord{
			Symbol:      s,
			On:          on,
			Close:       outcome.Close,
			Status:      outcome.Status,
			Provider:    outcome.Provider,
			Note:        outcome.Note,
			RetrievedAt: c.now().UTC(),
		}
		if err := c.store.Upsert(rec); err != nil {
			log.Printf("autoheal: applying outcome for %s: %v", rec.Key(), err)
		}
	}
	return res.Async, nil
}

// Start runs the control loop on a background goroutine until Stop. Each
// tick runs one Heal pass; errors are logged, not fatal, because a missed
// pass only delays healing.
func (c *AutoHealController) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})

	go func(stop chan struct{}) {
		ticker := time.NewTicker(c.cfg.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Heal(ctx); err != nil {
					log.Printf("autoheal: pass failed: %v", err)
				}
			}
		}
	}(c.stopCh)
}

// Stop halts the background loop. Safe to call when not running.
func (c *AutoHealController) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if !c.running {
		return
	}
	close(c.stopCh)
	c.running = false
}
