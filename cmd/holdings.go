package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/renderer"
)

// holdingsCmd holds the flags for the 'holdings' subcommand.
type holdingsCmd struct {
	date string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the open positions and lifetime results" }
func (*holdingsCmd) Usage() string {
	return `pnlt holdings [-d <date>]

  Replays the transaction history through the given day and displays the open
  positions, the lifetime realized PnL and the data-quality notes.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Day to compute the holdings for (defaults to today)")
}

func (c *holdingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		return fail(err)
	}
	txs, splits, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	cp, err := pnl.LatestCheckpoint(*checkpointDir, on)
	if err != nil {
		return fail(err)
	}
	book := pnl.RebuildThrough(txs, splits, cp, on)
	printMarkdown(renderer.HoldingsMarkdown(book))
	return subcommands.ExitSuccess
}
