package pnl

import (
	"iter"
	"time"
)

// This file implements the NY market calendar used to decide which days
// require a closing price. The holiday table is static: the ledger only needs
// it for the historical window covered by the transaction files, and a missed
// future holiday degrades to a market_closed record, never a wrong figure.

// nyseHolidays holds the observed NYSE full-closure days.
var nyseHolidays = map[Date]string{
	NewDate(2019, time.January, 1):    "New Year's Day",
	NewDate(2019, time.January, 21):   "Martin Luther King, Jr. Day",
	NewDate(2019, time.February, 18):  "Washington's Birthday",
	NewDate(2019, time.April, 19):     "Good Friday",
	NewDate(2019, time.May, 27):       "Memorial Day",
	NewDate(2019, time.July, 4):       "Independence Day",
	NewDate(2019, time.September, 2):  "Labor Day",
	NewDate(2019, time.November, 28):  "Thanksgiving Day",
	NewDate(2019, time.December, 25):  "Christmas Day",
	NewDate(2020, time.January, 1):    "New Year's Day",
	NewDate(2020, time.January, 20):   "Martin Luther King, Jr. Day",
	NewDate(2020, time.February, 17):  "Washington's Birthday",
	NewDate(2020, time.April, 10):     "Good Friday",
	NewDate(2020, time.May, 25):       "Memorial Day",
	NewDate(2020, time.July, 3):       "Independence Day (observed)",
	NewDate(2020, time.September, 7):  "Labor Day",
	NewDate(2020, time.November, 26):  "Thanksgiving Day",
	NewDate(2020, time.December, 25):  "Christmas Day",
	NewDate(2021, time.January, 1):    "New Year's Day",
	NewDate(2021, time.January, 18):   "Martin Luther King, Jr. Day",
	NewDate(2021, time.February, 15):  "Washington's Birthday",
	NewDate(2021, time.April, 2):      "Good Friday",
	NewDate(2021, time.May, 31):       "Memorial Day",
	NewDate(2021, time.July, 5):       "Independence Day (observed)",
	NewDate(2021, time.September, 6):  "Labor Day",
	NewDate(2021, time.November, 25):  "Thanksgiving Day",
	NewDate(2021, time.December, 24):  "Christmas Day (observed)",
	NewDate(2022, time.January, 17):   "Martin Luther King, Jr. Day",
	NewDate(2022, time.February, 21):  "Washington's Birthday",
	NewDate(2022, time.April, 15):     "Good Friday",
	NewDate(2022, time.May, 30):       "Memorial Day",
	NewDate(2022, time.June, 20):      "Juneteenth (observed)",
	NewDate(2022, time.July, 4):       "Independence Day",
	NewDate(2022, time.September, 5):  "Labor Day",
	NewDate(2022, time.November, 24):  "Thanksgiving Day",
	NewDate(2022, time.December, 26):  "Christmas Day (observed)",
	NewDate(2023, time.January, 2):    "New Year's Day (observed)",
	NewDate(2023, time.January, 16):   "Martin Luther King, Jr. Day",
	NewDate(2023, time.February, 20):  "Washington's Birthday",
	NewDate(2023, time.April, 7):      "Good Friday",
	NewDate(2023, time.May, 29):       "Memorial Day",
	NewDate(2023, time.June, 19):      "Juneteenth",
	NewDate(2023, time.July, 4):       "Independence Day",
	NewDate(2023, time.September, 4):  "Labor Day",
	NewDate(2023, time.November, 23):  "Thanksgiving Day",
	NewDate(2023, time.December, 25):  "Christmas Day",
	NewDate(2024, time.January, 1):    "New Year's Day",
	NewDate(2024, time.January, 15):   "Martin Luther King, Jr. Day",
	NewDate(2024, time.February, 19):  "Washington's Birthday",
	NewDate(2024, time.March, 29):     "Good Friday",
	NewDate(2024, time.May, 27):       "Memorial Day",
	NewDate(2024, time.June, 19):      "Juneteenth",
	NewDate(2024, time.July, 4):       "Independence Day",
	NewDate(2024, time.September, 2):  "Labor Day",
	NewDate(2024, time.November, 28):  "Thanksgiving Day",
	NewDate(2024, time.December, 25):  "Christmas Day",
	NewDate(2025, time.January, 1):    "New Year's Day",
	NewDate(2025, time.January, 9):    "National Day of Mourning",
	NewDate(2025, time.January, 20):   "Martin Luther King, Jr. Day",
	NewDate(2025, time.February, 17):  "Washington's Birthday",
	NewDate(2025, time.April, 18):     "Good Friday",
	NewDate(2025, time.May, 26):       "Memorial Day",
	NewDate(2025, time.June, 19):      "Juneteenth",
	NewDate(2025, time.July, 4):       "Independence Day",
	NewDate(2025, time.September, 1):  "Labor Day",
	NewDate(2025, time.November, 27):  "Thanksgiving Day",
	NewDate(2025, time.December, 25):  "Christmas Day",
	NewDate(2026, time.January, 1):    "New Year's Day",
	NewDate(2026, time.January, 19):   "Martin Luther King, Jr. Day",
	NewDate(2026, time.February, 16):  "Washington's Birthday",
	NewDate(2026, time.April, 3):      "Good Friday",
	NewDate(2026, time.May, 25):       "Memorial Day",
	NewDate(2026, time.June, 19):      "Juneteenth",
	NewDate(2026, time.July, 3):       "Independence Day (observed)",
	NewDate(2026, time.September, 7):  "Labor Day",
	NewDate(2026, time.November, 26):  "Thanksgiving Day",
	NewDate(2026, time.December, 25):  "Christmas Day",
}

// IsTradingDay reports whether the NY market is open on the given day.
func IsTradingDay(d Date) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := nyseHolidays[d]
	return !holiday
}

// Holiday returns the name of the holiday closing the market on d, if any.
func Holiday(d Date) (string, bool) {
	name, ok := nyseHolidays[d]
	return name, ok
}

// PrevTradingDay returns the last trading day strictly before d.
func PrevTradingDay(d Date) Date {
	for p := d.Add(-1); ; p = p.Add(-1) {
		if IsTradingDay(p) {
			return p
		}
	}
}

// NextTradingDay returns the first trading day strictly after d.
func NextTradingDay(d Date) Date {
	for n := d.Add(1); ; n = n.Add(1) {
		if IsTradingDay(n) {
			return n
		}
	}
}

// TradingDays returns an iterator over the trading days in [from, to], oldest first.
func TradingDays(from, to Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := from; !d.After(to); d = d.Add(1) {
			if !IsTradingDay(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}
