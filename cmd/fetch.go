package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/eodhd"
)

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	apiKeyFlag string
	date       string
	symbols    string
	splits     bool
	from       string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch closing prices or split events from EODHD" }
func (*fetchCmd) Usage() string {
	return `pnlt fetch -symbols AAPL,MSFT [-d <date>] [-splits [-from <date>]]

  Fetches the closing prices of the given symbols for one day, or with
  -splits the split events since -from, and records them in the database.

  Requires the ` + eodhdAPIKeyEnv + ` environment variable to be set or passed as a flag.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKeyFlag, "eodhd-api-key", "", "EODHD API key. This flag takes precedence over the "+eodhdAPIKeyEnv+" environment variable.")
	f.StringVar(&c.date, "d", "", "Day to fetch the closes for (defaults to today)")
	f.StringVar(&c.symbols, "symbols", "", "Comma separated list of symbols to fetch")
	f.BoolVar(&c.splits, "splits", false, "fetch split events instead of closing prices")
	f.StringVar(&c.from, "from", "", "with -splits, start of the split scan (defaults to the first transaction)")
}

func (c *fetchCmd) apiKey() string {
	if c.apiKeyFlag == "" {
		c.apiKeyFlag = os.Getenv(eodhdAPIKeyEnv)
	}
	return c.apiKeyFlag
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key := c.apiKey()
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable\n", eodhdAPIKeyEnv)
		return subcommands.ExitFailure
	}
	if c.symbols == "" {
		return fail(fmt.Errorf("fetch requires -symbols"))
	}
	symbols := strings.Split(c.symbols, ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}
	provider := eodhd.NewProvider(key)

	if c.splits {
		return c.fetchSplits(ctx, provider, symbols)
	}

	on, err := parseDay(c.date)
	if err != nil {
		return fail(err)
	}
	store, err := loadStore()
	if err != nil {
		return fail(err)
	}
	result, err := provider.FetchClose(ctx, on, symbols)
	if err != nil {
		return fail(err)
	}
	for symbol, outcome := range result.Outcomes {
		rec := pnl.PriceRecord{
			On:          on,
			Symbol:      symbol,
			Status:      outcome.Status,
			Close:       outcome.Close,
			Provider:    outcome.Provider,
			Note:        outcome.Note,
			RetrievedAt: time.Now().UTC(),
		}
		if err := store.Upsert(rec); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
			continue
		}
		fmt.Printf("%s %s: %s\n", on, symbol, outcome.Status)
	}
	if err := saveStore(store); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func (c *fetchCmd) fetchSplits(ctx context.Context, provider *eodhd.Provider, symbols []string) subcommands.ExitStatus {
	txs, _, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	from := pnl.Today()
	for _, tx := range txs {
		if on := tx.Date(); on.Before(from) {
			from = on
		}
	}
	if c.from != "" {
		if from, err = pnl.ParseDate(c.from); err != nil {
			return fail(err)
		}
	}
	table, err := provider.FetchSplits(ctx, symbols, from, pnl.Today())
	if err != nil {
		return fail(err)
	}
	if err := pnl.WriteSplits(*splitsFile, table); err != nil {
		return fail(err)
	}
	fmt.Printf("recorded %d split events in %s\n", len(table.Events()), *splitsFile)
	return subcommands.ExitSuccess
}
