package renderer

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/rferrand/pnl"
)

// DailyMarkdown renders one day's PnL decomposition.
func DailyMarkdown(r pnl.DayReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Daily PnL %s", r.On))

	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Total"), md.Bold(r.Total.SignedString())},
		Rows: [][]string{
			{"Realized", r.Realized.SignedString()},
			{"Unrealized", r.Unrealized.SignedString()},
		},
	})

	if r.Status == pnl.DayMissingData {
		doc.H2("Unresolved")
		doc.PlainTextf("Missing closes for %s: their contribution is excluded from the totals above.",
			strings.Join(r.MissingSymbols, ", "))
	}

	return doc.String()
}

// RangeMarkdown renders a day-by-day PnL table over a range.
func RangeMarkdown(reports []pnl.DayReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Daily PnL")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Day", "Realized", "Unrealized", "Total", "Status"},
	}
	var total pnl.Money
	for _, r := range reports {
		status := ""
		if r.Status == pnl.DayMissingData {
			status = fmt.Sprintf("missing %s", strings.Join(r.MissingSymbols, ", "))
		}
		table.Rows = append(table.Rows, []string{
			r.On.String(),
			r.Realized.SignedString(),
			r.Unrealized.SignedString(),
			r.Total.SignedString(),
			status,
		})
		total = total.Add(r.Total)
	}
	doc.Table(table)
	doc.PlainTextf("Range total: %s over %d trading days.", total.SignedString(), len(reports))

	return doc.String()
}
