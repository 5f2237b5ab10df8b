package pnl

import "testing"

func TestDetectGaps(t *testing.T) {
	txs := []Transaction{
		tradeAt("2024-01-02", "AAPL", SideBuy, 100, 10),
	}
	store := NewPriceStore()
	// Jan 2..10 2024 spans seven trading days; Jan 5 is left unfilled and
	// Jan 6-7 is a weekend that must not be reported.
	for _, day := range []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-08", "2024-01-09", "2024-01-10"} {
		if err := store.Upsert(okRecord("AAPL", day, 185)); err != nil {
			t.Fatal(err)
		}
	}

	tasks := DetectGaps(txs, nil, store, MustParseDate("2024-01-02"), MustParseDate("2024-01-10"))
	if len(tasks) != 1 {
		t.Fatalf("got %d gaps %v, want exactly one", len(tasks), tasks)
	}
	if tasks[0].On != MustParseDate("2024-01-05") || tasks[0].Symbol != "AAPL" {
		t.Errorf("gap = %+v, want AAPL on 2024-01-05", tasks[0])
	}
}

func TestDetectGapsFlatSymbolOwesNothing(t *testing.T) {
	txs := []Transaction{
		tradeAt("2024-01-02", "AAPL", SideBuy, 100, 10),
		tradeAt("2024-01-03", "AAPL", SideSell, 100, 11),
	}
	store := NewPriceStore()
	if err := store.Upsert(okRecord("AAPL", "2024-01-02", 10)); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(okRecord("AAPL", "2024-01-03", 11)); err != nil {
		t.Fatal(err)
	}

	tasks := DetectGaps(txs, nil, store, Date{}, MustParseDate("2024-01-10"))
	if len(tasks) != 0 {
		t.Errorf("flat position owes no prices after close-out, got %v", tasks)
	}
}

func TestDetectGapsSatisfiedEstimates(t *testing.T) {
	txs := []Transaction{
		tradeAt("2024-01-02", "XDEL", SideBuy, 50, 5),
	}
	store := NewPriceStore()
	if err := store.Upsert(okRecord("XDEL", "2024-01-02", 5)); err != nil {
		t.Fatal(err)
	}
	// A no_liquidity estimate satisfies the day; a pending cell does not.
	if err := store.Upsert(PriceRecord{Symbol: "XDEL", On: MustParseDate("2024-01-03"), Status: StatusNoLiquidity}); err != nil {
		t.Fatal(err)
	}
	store.MarkPending("XDEL", MustParseDate("2024-01-04"))

	tasks := DetectGaps(txs, nil, store, Date{}, MustParseDate("2024-01-04"))
	if len(tasks) != 1 || tasks[0].On != MustParseDate("2024-01-04") {
		t.Errorf("got %v, want a single gap on 2024-01-04", tasks)
	}
}

func TestDetectGapsOpeningPositionBeforeRange(t *testing.T) {
	txs := []Transaction{
		tradeAt("2023-12-15", "AAPL", SideBuy, 10, 180),
	}
	store := NewPriceStore()

	tasks := DetectGaps(txs, nil, store, MustParseDate("2024-01-02"), MustParseDate("2024-01-03"))
	if len(tasks) != 2 {
		t.Fatalf("position opened before the range still owes prices, got %v", tasks)
	}
}

func TestGroupGapsByDay(t *testing.T) {
	tasks := []GapTask{
		{On: MustParseDate("2024-01-05"), Symbol: "AAPL"},
		{On: MustParseDate("2024-01-05"), Symbol: "TSLA"},
		{On: MustParseDate("2024-01-08"), Symbol: "AAPL"},
	}
	days, byDay := GroupGapsByDay(tasks)
	if len(days) != 2 || days[0] != MustParseDate("2024-01-05") {
		t.Fatalf("days = %v, want [2024-01-05 2024-01-08]", days)
	}
	if len(byDay[MustParseDate("2024-01-05")]) != 2 {
		t.Errorf("Jan 5 bucket = %v, want two symbols", byDay[MustParseDate("2024-01-05")])
	}
}
