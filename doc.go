// Package pnl tracks an investor's holdings and profit and loss by replaying
// a transaction history through a FIFO lot-matching ledger and combining it
// with historical daily closing prices.
//
// The two central pieces are the ledger ([Rebuild]) that turns an unordered
// stream of buys, sells, shorts and covers into realized and unrealized PnL
// with exact lot accounting, and the price reconciliation loop ([DetectGaps],
// [AutoHealController]) that finds trading days missing a close for an open position and
// drives a rate-limited, idempotent backfill against external providers.
//
// Missing data never blocks a computation: figures that depend on an absent
// price degrade to an explicit unresolved status instead.
package pnl
