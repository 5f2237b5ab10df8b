package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSplitAdjust(t *testing.T) {
	table := NewSplitTable(SplitEvent{
		Symbol:    "NVDA",
		Effective: NewDate(2024, time.June, 10),
		Ratio:     decimal.NewFromInt(10),
	})

	txs := []Transaction{
		{Symbol: "NVDA", Quantity: Q(5), Price: USD(1200), Time: time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)},
		{Symbol: "NVDA", Quantity: Q(10), Price: USD(121), Time: time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)},
		{Symbol: "AAPL", Quantity: Q(5), Price: USD(190), Time: time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)},
	}

	adjusted := table.Adjust(txs, Date{})

	// Pre-split trade rescaled, notional invariant.
	if got, want := adjusted[0].Quantity, Q(50); !got.Equal(want) {
		t.Errorf("pre-split quantity = %s, want %s", got, want)
	}
	if got, want := adjusted[0].Price, USD(120); !got.Equal(want) {
		t.Errorf("pre-split price = %s, want %s", got, want)
	}
	notional := adjusted[0].Price.Mul(adjusted[0].Quantity)
	if want := USD(6000); !notional.Equal(want) {
		t.Errorf("pre-split notional = %s, want %s", notional, want)
	}

	// Post-split trade and other symbols untouched.
	if !adjusted[1].Quantity.Equal(Q(10)) || !adjusted[1].Price.Equal(USD(121)) {
		t.Errorf("post-split trade was rescaled: %s @ %s", adjusted[1].Quantity, adjusted[1].Price)
	}
	if !adjusted[2].Quantity.Equal(Q(5)) {
		t.Errorf("unrelated symbol was rescaled: %s", adjusted[2].Quantity)
	}

	// The input slice is never modified.
	if !txs[0].Quantity.Equal(Q(5)) {
		t.Errorf("Adjust modified its input: %s", txs[0].Quantity)
	}
}

func TestSplitAdjustCumulative(t *testing.T) {
	table := NewSplitTable(
		SplitEvent{Symbol: "TSLA", Effective: NewDate(2020, time.August, 31), Ratio: decimal.NewFromInt(5)},
		SplitEvent{Symbol: "TSLA", Effective: NewDate(2022, time.August, 25), Ratio: decimal.NewFromInt(3)},
	)

	txs := []Transaction{
		{Symbol: "TSLA", Quantity: Q(2), Price: USD(1500), Time: time.Date(2020, 2, 3, 15, 0, 0, 0, time.UTC)},
	}
	adjusted := table.Adjust(txs, Date{})
	if got, want := adjusted[0].Quantity, Q(30); !got.Equal(want) {
		t.Errorf("cumulative quantity = %s, want %s", got, want)
	}
	if got, want := adjusted[0].Price, USD(100); !got.Equal(want) {
		t.Errorf("cumulative price = %s, want %s", got, want)
	}
}

func TestSplitAdjustCutoff(t *testing.T) {
	table := NewSplitTable(SplitEvent{
		Symbol:    "NVDA",
		Effective: NewDate(2024, time.June, 10),
		Ratio:     decimal.NewFromInt(10),
	})
	txs := []Transaction{
		{Symbol: "NVDA", Quantity: Q(5), Price: USD(1200), Time: time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)},
	}

	// Viewed from before the split's effective date, nothing is rescaled.
	adjusted := table.Adjust(txs, NewDate(2024, time.June, 7))
	if !adjusted[0].Quantity.Equal(Q(5)) {
		t.Errorf("split applied before its effective date: %s", adjusted[0].Quantity)
	}
}

func TestSplitIdentity(t *testing.T) {
	a := NewSplitTable(SplitEvent{Symbol: "NVDA", Effective: NewDate(2024, time.June, 10), Ratio: decimal.NewFromInt(10)})
	b := NewSplitTable(SplitEvent{Symbol: "NVDA", Effective: NewDate(2024, time.June, 10), Ratio: decimal.NewFromInt(10)})
	c := NewSplitTable(SplitEvent{Symbol: "NVDA", Effective: NewDate(2024, time.June, 10), Ratio: decimal.NewFromInt(4)})

	if a.Identity() != b.Identity() {
		t.Errorf("identical tables should share an identity")
	}
	if a.Identity() == c.Identity() {
		t.Errorf("different tables should not share an identity")
	}
}
