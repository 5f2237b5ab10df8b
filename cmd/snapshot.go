package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
)

// snapshotCmd holds the flags for the 'snapshot' subcommand.
type snapshotCmd struct {
	date string
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "write a ledger checkpoint to speed up later rebuilds" }
func (*snapshotCmd) Usage() string {
	return `pnlt snapshot [-d <date>]

  Replays the transaction history through the given day and writes the
  resulting positions to the checkpoint folder. Later rebuilds resume from
  the checkpoint instead of replaying the full history.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Day to checkpoint (defaults to today)")
}

func (c *snapshotCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		return fail(err)
	}
	txs, splits, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	book := pnl.RebuildThrough(txs, splits, nil, on)
	cp := pnl.NewCheckpoint(book, on)
	if err := pnl.WriteCheckpoint(*checkpointDir, cp); err != nil {
		return fail(err)
	}
	fmt.Printf("checkpoint written for %s: %d open positions, %d transactions replayed\n", on, len(cp.Groups), book.Counters.Used)
	return subcommands.ExitSuccess
}
