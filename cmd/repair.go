package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// repairCmd holds the flags for the 'repair' subcommand.
type repairCmd struct {
	symbol string
	date   string
}

func (*repairCmd) Name() string     { return "repair" }
func (*repairCmd) Synopsis() string { return "delete a price cell so it can be fetched again" }
func (*repairCmd) Usage() string {
	return `pnlt repair -s <symbol> -d <date>

  Deletes the stored price cell for the given symbol and day. This is the
  only way out of a terminal status: the next heal pass will retry the cell.
`
}

func (c *repairCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Symbol of the cell to repair")
	f.StringVar(&c.date, "d", "", "Day of the cell to repair")
}

func (c *repairCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.date == "" {
		return fail(fmt.Errorf("repair requires both -s and -d"))
	}
	on, err := parseDay(c.date)
	if err != nil {
		return fail(err)
	}
	store, err := loadStore()
	if err != nil {
		return fail(err)
	}
	if !store.Repair(c.symbol, on) {
		fmt.Printf("no price cell for %s on %s\n", c.symbol, on)
		return subcommands.ExitSuccess
	}
	if err := saveStore(store); err != nil {
		return fail(err)
	}
	fmt.Printf("repaired %s on %s, it will be retried on the next heal\n", c.symbol, on)
	return subcommands.ExitSuccess
}
