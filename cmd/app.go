// Package cmd implements the CLI application to track trading PnL.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl"
)

// Commands lists the subcommands a main package registers.
var Commands = []subcommands.Command{
	&holdingsCmd{},
	&dailyCmd{},
	&gapsCmd{},
	&healCmd{},
	&fetchCmd{},
	&repairCmd{},
	&snapshotCmd{},
	&topicCmd{},
	&assistCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", "transactions.jsonl", "Path to the transaction export (JSONL format)")
var splitsFile = flag.String("splits-file", "splits.jsonl", "Path to the split table (JSONL format)")
var pricesDir = flag.String("prices-dir", "prices", "Path to the closing-price database folder")
var checkpointDir = flag.String("checkpoint-dir", ".checkpoints", "Path to the snapshot checkpoint folder")
var configFile = flag.String("config", "", "Path to the auto-heal YAML config (defaults apply when absent)")

// loadHistory reads the transaction export and the split table. A missing
// ledger is an empty history, not an error.
func loadHistory() ([]pnl.Transaction, *pnl.SplitTable, error) {
	txs, err := pnl.ReadTransactions(*ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("warning, ledger file does not exist, starting from an empty history")
		txs, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	splits, err := pnl.ReadSplits(*splitsFile)
	if err != nil {
		return nil, nil, err
	}
	return txs, splits, nil
}

// loadStore reads the closing-price database.
func loadStore() (*pnl.PriceStore, error) {
	return pnl.LoadPrices(*pricesDir)
}

// saveStore persists the closing-price database when it changed.
func saveStore(store *pnl.PriceStore) error {
	if !store.Dirty() {
		return nil
	}
	return pnl.SavePrices(*pricesDir, store)
}

// fail prints an error and returns the failure exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// printMarkdown renders a markdown string on stdout.
func printMarkdown(md string) {
	fmt.Print(md)
}

// parseDay parses a -d flag value, defaulting to today.
func parseDay(s string) (pnl.Date, error) {
	if s == "" {
		return pnl.Today(), nil
	}
	return pnl.ParseDate(s)
}
