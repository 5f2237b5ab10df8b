package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/renderer"
)

// dailyCmd holds the flags for the 'daily' subcommand.
type dailyCmd struct {
	date  string
	from  string
	to    string
	watch int
}

func (*dailyCmd) Name() string     { return "daily" }
func (*dailyCmd) Synopsis() string { return "decompose a day's PnL into realized and unrealized" }
func (*dailyCmd) Usage() string {
	return `pnlt daily [-d <date>] [-from <date> -to <date>] [-w n]

  Displays the PnL decomposition of a single trading day, or of every trading
  day in a range. Days with unsatisfied prices are reported as missing_data.
`
}

func (c *dailyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Day to decompose (defaults to today)")
	f.StringVar(&c.from, "from", "", "Start of a range of days")
	f.StringVar(&c.to, "to", "", "End of a range of days")
	f.IntVar(&c.watch, "w", 0, "run every n seconds")
}

func (c *dailyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	for {
		if status := c.run(); status != subcommands.ExitSuccess {
			return status
		}
		if c.watch > 0 {
			time.Sleep(time.Duration(c.watch) * time.Second)
		} else {
			break
		}
	}
	return subcommands.ExitSuccess
}

func (c *dailyCmd) run() subcommands.ExitStatus {
	txs, splits, err := loadHistory()
	if err != nil {
		return fail(err)
	}
	store, err := loadStore()
	if err != nil {
		return fail(err)
	}
	engine := pnl.NewAttributionEngine(txs, splits, store).WithCheckpoints(*checkpointDir)

	var md string
	if c.from != "" || c.to != "" {
		from, err := pnl.ParseDate(c.from)
		if err != nil {
			return fail(fmt.Errorf("invalid -from: %w", err))
		}
		to, err := pnl.ParseDate(c.to)
		if err != nil {
			return fail(fmt.Errorf("invalid -to: %w", err))
		}
		md = renderer.RangeMarkdown(engine.Range(from, to))
	} else {
		on, err := parseDay(c.date)
		if err != nil {
			return fail(err)
		}
		md = renderer.DailyMarkdown(engine.Day(on))
	}

	if c.watch > 0 {
		fmt.Println("\033[2J")
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
