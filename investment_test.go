package portsim

import (
	"errors"
	"testing"

	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// histF builds a rate or close-price series from a date→value map.
func histF(rows map[string]float64) *date.History[float64] {
	h := &date.History[float64]{}
	for d, v := range rows {
		h.Append(date.MustParse(d), v)
	}
	return h
}

// dec parses a decimal literal, failing the test on bad input.
func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func checkDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// newTestInvestment builds an investment over a JPY asset with the given
// closing prices, so no currency conversion is involved.
func newTestInvestment(t *testing.T, closes map[string]float64) *Investment {
	t.Helper()
	provider := NewStaticProvider()
	provider.AddClosePrices("TEST", "JPY", histF(closes))
	asset, err := NewAsset(provider, Stock, "TEST", "JPY")
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	if err := asset.Fetch(nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if err := NewConverter(provider, ForwardFill, DropRow, zerolog.Nop()).ConvertToTarget(asset); err != nil {
		t.Fatalf("ConvertToTarget: %v", err)
	}
	return NewInvestment(asset)
}

func TestRecordTradeSnapsForward(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 100, // Jan 6 and 7 are a weekend
	})

	trade, err := inv.RecordTrade(date.MustParse("2024-01-06"), Buy, dec(t, "1000"))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if want := date.MustParse("2024-01-08"); trade.Date != want {
		t.Errorf("trade date = %s, want %s", trade.Date, want)
	}
	checkDecimal(t, "quantity", trade.Quantity, "10")
}

func TestRecordTradeAfterLastDay(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{"2024-01-05": 100})

	_, err := inv.RecordTrade(date.MustParse("2024-01-06"), Buy, dec(t, "1000"))
	var nodata NoDataAfterError
	if !errors.As(err, &nodata) {
		t.Fatalf("RecordTrade error = %v, want NoDataAfterError", err)
	}
	if nodata.Ticker != "TEST" {
		t.Errorf("error ticker = %q, want TEST", nodata.Ticker)
	}
}

func TestStateAtSnapsBackward(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 110,
	})
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Buy, dec(t, "1000")); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	// Jan 6 is not a trading day: the state is Jan 5's.
	state, err := inv.StateAt(date.MustParse("2024-01-06"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "10")
	checkDecimal(t, "valuation", state.Valuation, "1000")
}

func TestStateAtBeforeAnyData(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{"2024-01-05": 100})

	_, err := inv.StateAt(date.MustParse("2024-01-04"))
	var nodata NoDataBeforeError
	if !errors.As(err, &nodata) {
		t.Fatalf("StateAt error = %v, want NoDataBeforeError", err)
	}
}

func TestStateAtAverageCost(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 200,
	})
	// 10 shares at 100, then 5 shares at 200: average price 133.33...
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}
	if _, err := inv.RecordTrade(date.MustParse("2024-01-08"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}

	state, err := inv.StateAt(date.MustParse("2024-01-08"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "15")
	checkDecimal(t, "principal", state.Principal, "2000")
	checkDecimal(t, "valuation", state.Valuation, "3000")
	want := dec(t, "2000").Div(dec(t, "15"))
	if !state.AveragePrice.Equal(want) {
		t.Errorf("average price = %s, want %s", state.AveragePrice, want)
	}
}

func TestStateAtSellKeepsAveragePrice(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 200,
	})
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}
	// Sell 400 at price 200: 2 shares leave, 8 remain at average 100.
	if _, err := inv.RecordTrade(date.MustParse("2024-01-08"), Sell, dec(t, "400")); err != nil {
		t.Fatal(err)
	}

	state, err := inv.StateAt(date.MustParse("2024-01-08"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "8")
	checkDecimal(t, "average price", state.AveragePrice, "100")
	checkDecimal(t, "principal", state.Principal, "800")
	checkDecimal(t, "valuation", state.Valuation, "1600")
}

func TestStateAtOverSellClampsToZero(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{"2024-01-05": 100})
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Sell, dec(t, "5000")); err != nil {
		t.Fatal(err)
	}

	state, err := inv.StateAt(date.MustParse("2024-01-05"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "0")
	checkDecimal(t, "average price", state.AveragePrice, "0")
	checkDecimal(t, "valuation", state.Valuation, "0")
}

func TestStateAtInsertionOrderInvariance(t *testing.T) {
	closes := map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 200,
		"2024-01-09": 250,
	}
	on := date.MustParse("2024-01-09")

	chrono := newTestInvestment(t, closes)
	for _, day := range []string{"2024-01-05", "2024-01-08"} {
		if _, err := chrono.RecordTrade(date.MustParse(day), Buy, dec(t, "1000")); err != nil {
			t.Fatal(err)
		}
	}

	// Same trades, recorded backdated.
	backdated := newTestInvestment(t, closes)
	for _, day := range []string{"2024-01-08", "2024-01-05"} {
		if _, err := backdated.RecordTrade(date.MustParse(day), Buy, dec(t, "1000")); err != nil {
			t.Fatal(err)
		}
	}

	a, err := chrono.StateAt(on)
	if err != nil {
		t.Fatal(err)
	}
	b, err := backdated.StateAt(on)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Shares.Equal(b.Shares) || !a.AveragePrice.Equal(b.AveragePrice) {
		t.Errorf("state depends on insertion order: %+v vs %+v", a, b)
	}
}

func TestStateAtIgnoresFutureTrades(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{
		"2024-01-05": 100,
		"2024-01-08": 200,
	})
	if _, err := inv.RecordTrade(date.MustParse("2024-01-05"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}
	if _, err := inv.RecordTrade(date.MustParse("2024-01-08"), Buy, dec(t, "1000")); err != nil {
		t.Fatal(err)
	}

	state, err := inv.StateAt(date.MustParse("2024-01-05"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "10")
}

func TestStateAtEmptyLedger(t *testing.T) {
	inv := newTestInvestment(t, map[string]float64{"2024-01-05": 100})

	state, err := inv.StateAt(date.MustParse("2024-01-05"))
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	checkDecimal(t, "shares", state.Shares, "0")
	checkDecimal(t, "valuation", state.Valuation, "0")
}
