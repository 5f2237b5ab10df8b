package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/renderer"
)

// gapsCmd holds the flags for the 'gaps' subcommand.
type gapsCmd struct {
	from string
	to   string
}

func (*gapsCmd) Name() string     { return "gaps" }
func (*gapsCmd) Synopsis() string { return "list the trading days still missing a closing price" }
func (*gapsCmd) Usage() string {
	return `pnlt gaps [-from <date>] [-to <date>]

  Replays the position history day by day and lists every (day, symbol) whose
  closing price is absent or still retryable. Flat days owe no price.
`
}

func (c *gapsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Start of the scan (defaults to the first transaction)")
	f.StringVar(&c.to, "to", "", "End of the scan (defaults to today)")
}

func (c *gapsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, splits, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	store, err := loadStore()
	if err != nil {
		return fail(err)
	}

	var from, to pnl.Date
	if c.from != "" {
		if from, err = pnl.ParseDate(c.from); err != nil {
			return fail(err)
		}
	}
	to = pnl.Today()
	if c.to != "" {
		if to, err = pnl.ParseDate(c.to); err != nil {
			return fail(err)
		}
	}

	tasks := pnl.DetectGaps(txs, splits, store, from, to)
	printMarkdown(renderer.GapsMarkdown(tasks))
	return subcommands.ExitSuccess
}
