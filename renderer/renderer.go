// Package renderer turns portfolio reports into markdown documents.
//
// Every renderer returns a plain markdown string. The CLI decides how to
// display it (typically through a terminal markdown renderer), which keeps
// this package free of any terminal concern.
package renderer

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders an amount with the currency's own conventions,
// e.g. "¥1,234,567" or "$1,234.57".
func formatMoney(amount decimal.Decimal, code string) string {
	currency := money.GetCurrency(code)
	if currency == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}
	minor := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// formatPercent renders a rate like 0.0712 as "+7.12%".
func formatPercent(rate float64) string {
	return fmt.Sprintf("%+.2f%%", rate*100)
}

// formatShares renders a share count with enough precision for fractional
// holdings without trailing noise.
func formatShares(shares decimal.Decimal) string {
	return shares.Round(4).String()
}
