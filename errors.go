package portsim

import (
	"fmt"

	"github.com/planwise/portsim/date"
)

// The engine never reports "no data" through a nil or empty result: every
// failure surfaces as one of the typed errors below, carrying the ticker
// and date that triggered it so callers can tell failures apart with
// errors.As.

// InvalidPlanError reports a plan rejected at portfolio construction.
type InvalidPlanError struct {
	Reason string
}

func (e InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid plan: %s", e.Reason)
}

// DataUnavailableError reports that the market data provider could not
// resolve a ticker or returned no rows for the requested range.
type DataUnavailableError struct {
	Ticker string
	Err    error
}

func (e DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no market data available for %q: %v", e.Ticker, e.Err)
	}
	return fmt.Sprintf("no market data available for %q", e.Ticker)
}

func (e DataUnavailableError) Unwrap() error { return e.Err }

// NoDataBeforeError reports a state query for a date with no trading
// history on or before it.
type NoDataBeforeError struct {
	Ticker string
	Day    date.Date
}

func (e NoDataBeforeError) Error() string {
	return fmt.Sprintf("%s: no data available on %s or before", e.Ticker, e.Day)
}

// NoDataAfterError reports a trade dated after the last loaded trading day.
type NoDataAfterError struct {
	Ticker string
	Day    date.Date
}

func (e NoDataAfterError) Error() string {
	return fmt.Sprintf("%s: no data available on %s or after", e.Ticker, e.Day)
}

// DateRangeMismatchError reports that the assets' trading calendars did not
// converge to a common first/last trading day within the round budget.
type DateRangeMismatchError struct {
	Rounds int
	Spans  map[string]date.Range // loaded span per ticker at the last round
}

func (e DateRangeMismatchError) Error() string {
	return fmt.Sprintf("date ranges of assets do not match after %d rounds", e.Rounds)
}

// InvestmentNotFoundError reports a ticker that is not part of the plan.
type InvestmentNotFoundError struct {
	Ticker string
}

func (e InvestmentNotFoundError) Error() string {
	return fmt.Sprintf("investment not found for asset %q", e.Ticker)
}

// ZeroPrincipalError reports a profit rate query on a portfolio with no
// paid-in capital, where the rate is undefined.
type ZeroPrincipalError struct{}

func (e ZeroPrincipalError) Error() string {
	return "profit rate is undefined: principal is zero"
}
