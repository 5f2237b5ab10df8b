package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/eodhd"
	"github.com/rferrand/pnl/renderer"
)

const eodhdAPIKeyEnv = "EODHD_API_TOKEN"

// healCmd holds the flags for the 'heal' subcommand.
type healCmd struct {
	apiKeyFlag string
	reset      bool
	passes     int
}

func (*healCmd) Name() string     { return "heal" }
func (*healCmd) Synopsis() string { return "backfill the missing closing prices, oldest day first" }
func (*healCmd) Usage() string {
	return `pnlt heal [-reset] [-passes n]

  Detects the price gaps and dispatches batched backfill requests to the
  vendor, oldest day first. The session budget, the batch size and the pacing
  come from the -config file, with safe defaults when absent.

  Requires the ` + eodhdAPIKeyEnv + ` environment variable to be set or passed as a flag.
`
}

func (c *healCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apiKeyFlag, "eodhd-api-key", "", "EODHD API key. This flag takes precedence over the "+eodhdAPIKeyEnv+" environment variable. You can get one at https://eodhd.com/")
	f.BoolVar(&c.reset, "reset", false, "forget previous attempts and retry every unresolved cell")
	f.IntVar(&c.passes, "passes", 1, "number of heal passes to run")
}

func (c *healCmd) apiKey() string {
	if c.apiKeyFlag == "" {
		c.apiKeyFlag = os.Getenv(eodhdAPIKeyEnv)
	}
	return c.apiKeyFlag
}

func (c *healCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key := c.apiKey()
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable\n", eodhdAPIKeyEnv)
		return subcommands.ExitFailure
	}

	cfg, err := pnl.LoadHealConfig(*configFile)
	if err != nil {
		return fail(err)
	}
	txs, splits, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	store, err := loadStore()
	if err != nil {
		return fail(err)
	}

	gaps := func() []pnl.GapTask {
		return pnl.DetectGaps(txs, splits, store, pnl.Date{}, pnl.Today())
	}
	controller := pnl.NewAutoHealController(store, eodhd.NewProvider(key), gaps, cfg)
	if c.reset {
		controller.Reset()
	}

	dispatched := 0
	for i := 0; i < c.passes; i++ {
		n, err := controller.Heal(ctx)
		dispatched += n
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}
		if n == 0 {
			break
		}
	}

	if err := saveStore(store); err != nil {
		return fail(err)
	}
	printMarkdown(renderer.HealMarkdown(dispatched, controller.State(), controller.EcoMode(), len(gaps())))
	return subcommands.ExitSuccess
}
