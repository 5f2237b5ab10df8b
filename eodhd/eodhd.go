// Package eodhd backfills end-of-day closes from the EODHD API, with the
// Tradegate last-transaction quote as a fallback for symbols the vendor has
// no bar for.
package eodhd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rferrand/pnl"
	"github.com/shopspring/decimal"
)

// Provider implements pnl.BackfillFetcher over the EODHD EOD endpoint.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client

	// fallback answers with a last-known quote when EODHD has no bar.
	// Replaceable in tests.
	fallback func(symbol string) (float64, error)
}

// NewProvider returns a provider with a daily-expiring disk cache and the
// Tradegate fallback.
func NewProvider(apiKey string) *Provider {
	return &Provider{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  newDailyCachingClient(),
		fallback: func(symbol string) (float64, error) {
			// Tradegate quotes in euros; the ledger reports in dollars.
			eur, err := pnl.TradegateLast(symbol, symbol)
			if err != nil {
				return eur, err
			}
			rate, err := pnl.TradegateLastEURperUSD()
			if err != nil {
				return eur, err
			}
			return eur * rate, nil
		},
	}
}

// FetchClose implements pnl.BackfillFetcher: one synchronous dispatch per
// symbol, every outcome accounted for. The chain per symbol is: EODHD bar
// for the day, then the fallback quote, then a terminal failure status.
func (p *Provider) FetchClose(ctx context.Context, on pnl.Date, symbols []string) (*pnl.BackfillResult, error) {
	res := &pnl.BackfillResult{Outcomes: make(map[string]pnl.SymbolOutcome, len(symbols))}
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, err := p.fetchOne(on, symbol)
		if err != nil {
			return nil, err
		}
		res.Outcomes[symbol] = outcome
	}
	return res, nil
}

func (p *Provider) fetchOne(on pnl.Date, symbol string) (pnl.SymbolOutcome, error) {
	if !pnl.IsTradingDay(on) {
		note := "weekend"
		if h, ok := pnl.Holiday(on); ok {
			note = h
		}
		return pnl.SymbolOutcome{Status: pnl.StatusMarketClosed, Note: note}, nil
	}

	bars, err := fetchEOD(p.client, p.baseURL, p.apiKey, tickerOf(symbol), on, on)
	switch {
	case planLimited(err):
		// The date is outside the plan's covered range: fill with a
		// best-effort estimate from the fallback quote.
		return p.estimate(symbol, pnl.StatusPlanLimited, fmt.Sprintf("eodhd refused the range: %v", err)), nil
	case err != nil:
		return pnl.SymbolOutcome{}, fmt.Errorf("eodhd %s %s: %w", symbol, on, err)
	}

	for _, bar := range bars {
		if bar.Date == on && bar.Close.IsPositive() {
			return pnl.SymbolOutcome{Close: bar.Close, Status: pnl.StatusOK, Provider: "eodhd"}, nil
		}
	}

	// A trading day without a vendor bar: the symbol traded nowhere, or
	// only on venues the vendor does not cover.
	return p.estimate(symbol, pnl.StatusNoLiquidity, "no eodhd bar for the day"), nil
}

// estimate asks the fallback source for a last-known quote. When even the
// fallback has nothing the outcome demotes to missing_vendor, which stops
// automatic retries until a manual repair.
func (p *Provider) estimate(symbol string, status pnl.PriceStatus, note string) pnl.SymbolOutcome {
	val, err := p.fallback(symbol)
	if err != nil || val <= 0 {
		return pnl.SymbolOutcome{
			Status: pnl.StatusMissingVendor,
			Note:   fmt.Sprintf("%s; fallback failed: %v", note, err),
		}
	}
	return pnl.SymbolOutcome{
		Close:    decimal.NewFromFloat(val),
		Status:   status,
		Provider: "tradegate",
		Note:     note + "; estimated from the last fallback quote",
	}
}

// FetchSplits merges the vendor's split history for the given symbols into a
// single table, newest data winning over nothing.
func (p *Provider) FetchSplits(ctx context.Context, symbols []string, from, to pnl.Date) (*pnl.SplitTable, error) {
	var events []pnl.SplitEvent
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		es, err := fetchSplits(p.client, p.baseURL, p.apiKey, tickerOf(symbol), from, to)
		if err != nil {
			return nil, fmt.Errorf("eodhd splits %s: %w", symbol, err)
		}
		events = append(events, es...)
	}
	return pnl.NewSplitTable(events...), nil
}
