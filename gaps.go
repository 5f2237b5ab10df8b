package pnl

import "sort"

// GapTask names one missing closing price: a symbol that was held at the end
// of a trading day whose price cell is absent or retryable.
type GapTask struct {
	On     Date   `json:"on"`
	Symbol string `json:"symbol"`
}

// DetectGaps replays the position history day by day and reports every
// (trading day, symbol) cell the store cannot satisfy. Only days where the
// symbol was actually held count: a flat symbol owes no price. The range
// defaults to the first transaction date when from is zero. Tasks come back
// oldest first, then by symbol, which is the order the healer works in.
func DetectGaps(txs []Transaction, splits *SplitTable, store *PriceStore, from, to Date) []GapTask {
	adjusted := splits.Adjust(txs, to)
	ordered := make([]Transaction, len(adjusted))
	copy(ordered, adjusted)
	sortTransactions(ordered)

	// Net quantity per symbol, all groups of a symbol folded together: an
	// option position keeps its underlying symbol alive for valuation.
	byDay := make(map[Date][]Transaction)
	var first Date
	for _, tx := range ordered {
		if tx.Kind == KindSplit {
			continue
		}
		tx, _, ok := normalizeTx(tx)
		if !ok {
			continue
		}
		byDay[tx.Date()] = append(byDay[tx.Date()], tx)
		if first.IsZero() {
			first = tx.Date()
		}
	}
	if first.IsZero() {
		return nil
	}
	if from.IsZero() {
		from = first
	}
	if to.Before(from) {
		return nil
	}

	net := make(map[string]Quantity)

	// Transactions dated before the range still shape the opening position.
	for day, dayTxs := range byDay {
		if day.Before(from) {
			for _, tx := range dayTxs {
				net[tx.NormalSymbol()] = net[tx.NormalSymbol()].Add(tx.Quantity)
			}
		}
	}

	var tasks []GapTask
	for day := from; !day.After(to); day = day.Add(1) {
		for _, tx := range byDay[day] {
			net[tx.NormalSymbol()] = net[tx.NormalSymbol()].Add(tx.Quantity)
		}
		if !IsTradingDay(day) {
			continue
		}
		held := make([]string, 0, len(net))
		for symbol, qty := range net {
			if !qty.IsFlat() {
				held = append(held, symbol)
			}
		}
		sort.Strings(held)
		for _, symbol := range held {
			if !store.Satisfied(symbol, day) {
				tasks = append(tasks, GapTask{On: day, Symbol: symbol})
			}
		}
	}
	return tasks
}

// GroupGapsByDay buckets tasks per day, preserving the oldest-first order of
// the day keys in the returned slice.
func GroupGapsByDay(tasks []GapTask) (days []Date, byDay map[Date][]string) {
	byDay = make(map[Date][]string)
	for _, t := range tasks {
		if _, seen := byDay[t.On]; !seen {
			days = append(days, t.On)
		}
		byDay[t.On] = append(byDay[t.On], t.Symbol)
	}
	return days, byDay
}
