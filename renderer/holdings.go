// Package renderer turns ledger and attribution results into markdown for
// the terminal.
package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/rferrand/pnl"
)

// HoldingsMarkdown renders the open positions of a book.
func HoldingsMarkdown(book *pnl.Book) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Holdings")

	holdings := book.SortedHoldings()
	if len(holdings) == 0 {
		doc.PlainText("No open position.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{"Symbol", "Side", "Quantity", "Cost / Unit", "Realized"},
		}
		for _, h := range holdings {
			symbol := h.Symbol
			if h.ContractKey != "" {
				symbol = h.ContractKey
			}
			table.Rows = append(table.Rows, []string{
				symbol,
				string(h.Side),
				h.NetQuantity.String(),
				h.CostPerUnit.String(),
				h.Realized.SignedString(),
			})
		}
		doc.Table(table)
	}

	doc.H2("Lifetime")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Realized"), md.Bold(book.LifetimeRealized.SignedString())},
		Rows: [][]string{
			{"Wins", fmt.Sprintf("%d", book.Wins)},
			{"Losses", fmt.Sprintf("%d", book.Losses)},
			{"Closed round trips", fmt.Sprintf("%d", book.Counters.ZeroDropped)},
		},
	})

	notes := 0
	for _, h := range holdings {
		notes += len(h.Notes)
	}
	if notes > 0 {
		doc.H2("Data Quality")
		for _, h := range holdings {
			for _, n := range h.Notes {
				doc.BulletList(fmt.Sprintf("%s: %s", h.Symbol, n))
			}
		}
	}

	return doc.String()
}
