package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rferrand/pnl"
	"github.com/shopspring/decimal"
)

var _ pnl.BackfillFetcher = (*Provider)(nil)

// testProvider wires a provider against a stub API server, bypassing the
// disk cache.
func testProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Provider{
		apiKey:  "demo",
		baseURL: srv.URL,
		client:  srv.Client(),
		fallback: func(symbol string) (float64, error) {
			return 0, errors.New("no fallback in this test")
		},
	}
}

func TestFetchCloseOK(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/eod/AAPL.US") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"date":"2024-01-05","open":181.5,"close":185.25,"volume":100}]`)
	})

	res, err := p.FetchClose(context.Background(), pnl.MustParseDate("2024-01-05"), []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Outcomes["AAPL"]
	if out.Status != pnl.StatusOK || out.Provider != "eodhd" {
		t.Fatalf("outcome = %+v, want ok from eodhd", out)
	}
	if !out.Close.Equal(decimal.NewFromFloat(185.25)) {
		t.Errorf("close = %s, want 185.25", out.Close)
	}
}

func TestFetchCloseMarketClosed(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should go out for a holiday")
	})

	// 2024-01-01 is New Year's Day.
	res, err := p.FetchClose(context.Background(), pnl.MustParseDate("2024-01-01"), []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if out := res.Outcomes["AAPL"]; out.Status != pnl.StatusMarketClosed {
		t.Errorf("outcome = %+v, want market_closed", out)
	}
}

func TestFetchCloseNoLiquidityFallback(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	p.fallback = func(symbol string) (float64, error) { return 42.5, nil }

	res, err := p.FetchClose(context.Background(), pnl.MustParseDate("2024-01-05"), []string{"XTHIN"})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Outcomes["XTHIN"]
	if out.Status != pnl.StatusNoLiquidity || out.Provider != "tradegate" {
		t.Fatalf("outcome = %+v, want a no_liquidity estimate from tradegate", out)
	}
	if !out.Close.Equal(decimal.NewFromFloat(42.5)) {
		t.Errorf("close = %s, want the fallback quote 42.5", out.Close)
	}
}

func TestFetchCloseMissingVendor(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	res, err := p.FetchClose(context.Background(), pnl.MustParseDate("2024-01-05"), []string{"XGONE"})
	if err != nil {
		t.Fatal(err)
	}
	if out := res.Outcomes["XGONE"]; out.Status != pnl.StatusMissingVendor {
		t.Errorf("outcome = %+v, want missing_vendor when the fallback fails too", out)
	}
}

func TestFetchClosePlanLimited(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payment required", http.StatusPaymentRequired)
	})
	p.fallback = func(symbol string) (float64, error) { return 12.0, nil }

	res, err := p.FetchClose(context.Background(), pnl.MustParseDate("2020-03-06"), []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	out := res.Outcomes["AAPL"]
	if out.Status != pnl.StatusPlanLimited {
		t.Fatalf("outcome = %+v, want plan_limited with an estimate", out)
	}
	if !out.Close.Equal(decimal.NewFromFloat(12.0)) {
		t.Errorf("close = %s, want the fallback estimate", out.Close)
	}
}

func TestFetchCloseTransientError(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	_, err := p.FetchClose(context.Background(), pnl.MustParseDate("2024-01-05"), []string{"AAPL"})
	if err == nil {
		t.Fatal("a 503 must surface as a transient error, not an outcome")
	}
}

func TestFetchSplits(t *testing.T) {
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/splits/NVDA.US") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"date":"2024-06-10","split":"10.000000/1.000000"}]`)
	})

	table, err := p.FetchSplits(context.Background(), []string{"NVDA"}, pnl.MustParseDate("2024-01-01"), pnl.MustParseDate("2024-12-31"))
	if err != nil {
		t.Fatal(err)
	}
	events := table.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Symbol != "NVDA" || e.Effective != pnl.MustParseDate("2024-06-10") || !e.Ratio.Equal(decimal.NewFromInt(10)) {
		t.Errorf("event = %+v, want NVDA 10:1 effective 2024-06-10", e)
	}
}

func TestTickerMapping(t *testing.T) {
	cases := []struct{ in, want string }{
		{"aapl", "AAPL.US"},
		{" NVDA ", "NVDA.US"},
		{"SAP.XETRA", "SAP.XETRA"},
	}
	for _, c := range cases {
		if got := tickerOf(c.in); got != c.want {
			t.Errorf("tickerOf(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := symbolOf("AAPL.US"); got != "AAPL" {
		t.Errorf("symbolOf = %q, want AAPL", got)
	}
}
