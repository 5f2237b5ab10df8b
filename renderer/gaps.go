package renderer

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/rferrand/pnl"
)

// GapsMarkdown renders the missing-price worklist, oldest day first.
func GapsMarkdown(tasks []pnl.GapTask) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Price Gaps")
	if len(tasks) == 0 {
		doc.PlainText("Every held trading day has a satisfied close.")
		return doc.String()
	}

	days, byDay := pnl.GroupGapsByDay(tasks)
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft},
		Header:    []string{"Day", "Symbols"},
	}
	for _, day := range days {
		table.Rows = append(table.Rows, []string{day.String(), strings.Join(byDay[day], ", ")})
	}
	doc.Table(table)
	doc.PlainTextf("%d gaps over %d days. Run `pnlt heal` to backfill them.", len(tasks), len(days))

	return doc.String()
}

// HealMarkdown summarizes an auto-heal session.
func HealMarkdown(dispatched int, state pnl.HealState, eco bool, remaining int) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Auto-Heal")
	rows := [][]string{
		{"State", string(state)},
		{"Remaining gaps", fmt.Sprintf("%d", remaining)},
	}
	if eco {
		rows = append(rows, []string{"Eco mode", "session budget exhausted, reset to continue"})
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Dispatches"), md.Bold(fmt.Sprintf("%d", dispatched))},
		Rows:      rows,
	})

	return doc.String()
}
