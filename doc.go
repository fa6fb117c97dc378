// Package portsim simulates multi-asset investment portfolios against real
// market data. It is designed to answer one question honestly: what would a
// given allocation plan have done, in one currency, over the history the
// data actually covers.
//
// The core functionalities include:
//   - Allocation Plans: a plan maps tickers to target ratios and asset
//     types; every investment and rebalance follows the plan.
//   - Trade Ledger: each investment keeps its trades as an append-only
//     ledger and derives shares, average price, principal, and valuation
//     from it on demand, so state at any past date is reproducible.
//   - Date-Range Reconciliation: assets rarely share a calendar, so the
//     portfolio iteratively narrows every price series to the widest range
//     they all agree on before any simulation starts.
//   - Currency Conversion: price series quoted in foreign currencies are
//     converted to the target currency with configurable gap-filling of
//     exchange rates.
//   - Market Data: an abstract provider interface with a Yahoo Finance
//     implementation and a SQLite read-through cache.
//   - Operation Journal: portfolio actions persist as JSONL lines and
//     replay deterministically given the same price data.
//   - Monte Carlo Estimation: a backtested contribution strategy can be
//     bootstrapped into a distribution of terminal profit rates.
//
// This package is the foundational logic for the `psim` command-line tool.
package portsim
