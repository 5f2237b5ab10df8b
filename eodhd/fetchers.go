package eodhd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rferrand/pnl"
	"github.com/shopspring/decimal"
)

// This file contains functions to access the EODHD API.

const defaultBaseURL = "https://eodhd.com/api"

// eodBar is one daily bar from the EOD endpoint.
type eodBar struct {
	Date  pnl.Date        `json:"date"`
	Open  decimal.Decimal `json:"open"`
	Close decimal.Decimal `json:"close"`
}

// fetchEOD returns the daily bars for a ticker over [from, to], bounds
// included. Free subscriptions limit the range to one year back; the caller
// maps that refusal to a plan limitation.
func fetchEOD(client *http.Client, baseURL, apiKey, ticker string, from, to pnl.Date) ([]eodBar, error) {
	// https://eodhd.com/api/eod/AAPL.US?api_token=demo&fmt=json
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	  },
	addr := fmt.Sprintf("%s/eod/%s?fmt=json&period=d&api_token=%s&from=%s&to=%s", baseURL, ticker, apiKey, from, to)

	content := make([]eodBar, 0)
	if err := jwget(client, addr, &content); err != nil {
		return nil, err
	}
	return content, nil
}

// fetchSplits returns the split history for a ticker as ready-to-merge
// events.
func fetchSplits(client *http.Client, baseURL, apiKey, ticker string, from, to pnl.Date) ([]pnl.SplitEvent, error) {
	addr := fmt.Sprintf("%s/splits/%s?fmt=json&api_token=%s&from=%s&to=%s", baseURL, ticker, apiKey, from, to)

	type apiSplit struct {
		Date  pnl.Date `json:"date"`
		Split string   `json:"split"` // "4.000000/1.000000"
	}

	content := make([]apiSplit, 0)
	if err := jwget(client, addr, &content); err != nil {
		return nil, err
	}

	events := make([]pnl.SplitEvent, 0, len(content))
	for _, s := range content {
		num, den, ok := strings.Cut(s.Split, "/")
		if !ok {
			return nil, fmt.Errorf("unexpected split format %q for %s", s.Split, ticker)
		}
		n, err := decimal.NewFromString(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("unexpected split numerator %q for %s: %w", num, ticker, err)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(den))
		if err != nil {
			return nil, fmt.Errorf("unexpected split denominator %q for %s: %w", den, ticker, err)
		}
		if d.IsZero() || n.IsZero() {
			return nil, fmt.Errorf("degenerate split %q for %s", s.Split, ticker)
		}
		events = append(events, pnl.SplitEvent{
			Symbol:    symbolOf(ticker),
			Effective: s.Date,
			Ratio:     n.Div(d),
		})
	}
	return events, nil
}

// tickerOf maps a plain US symbol to the EODHD ticker format.
func tickerOf(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

// symbolOf is the inverse of tickerOf.
func symbolOf(ticker string) string {
	symbol, _, _ := strings.Cut(ticker, ".")
	return symbol
}
