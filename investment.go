package portsim

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/planwise/portsim/date"
	"github.com/shopspring/decimal"
)

// TradeKind is the side of a trade.
type TradeKind int

const (
	Buy TradeKind = iota
	Sell
)

func (k TradeKind) String() string {
	switch k {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseTradeKind parses a trade kind name ("buy" or "sell").
func ParseTradeKind(s string) (TradeKind, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown trade kind: %q", s)
	}
}

// Trade is one immutable entry of an investment's ledger.
//
// Quantity is derived at record time from the closing price of the resolved
// trading day. TaxRate is carried for reporting and does not enter the
// replay arithmetic.
type Trade struct {
	ID       uuid.UUID       `json:"id"`
	Date     date.Date       `json:"date"`
	Kind     TradeKind       `json:"-"`
	Amount   decimal.Decimal `json:"amount"`
	TaxRate  float64         `json:"taxRate,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
}

// State is the point-in-time result of replaying an investment's ledger.
type State struct {
	// AveragePrice is the weighted-average price paid per currently-held
	// share, recomputed only on buys.
	AveragePrice decimal.Decimal
	// Shares currently held. Never negative.
	Shares decimal.Decimal
	// Principal is Shares times AveragePrice: the cost basis of the
	// position still held.
	Principal decimal.Decimal
	// Valuation is Shares times the closing price of the resolved day.
	Valuation decimal.Decimal
}

// Investment owns one asset and the append-only ledger of trades on it.
//
// Trades are kept in insertion order, which is not necessarily
// chronological: transfers and backdated calls may append out of order.
// Replay always sorts by date before folding, so query results are
// independent of insertion order.
type Investment struct {
	asset  *Asset
	trades []Trade
}

// NewInvestment returns an investment over the given asset with an empty
// ledger.
func NewInvestment(asset *Asset) *Investment {
	return &Investment{asset: asset}
}

// Asset returns the invested asset.
func (inv *Investment) Asset() *Asset { return inv.asset }

// Trades returns a copy of the ledger in insertion order.
func (inv *Investment) Trades() []Trade {
	out := make([]Trade, len(inv.trades))
	copy(out, inv.trades)
	return out
}

// clear empties the ledger. Price data is untouched.
func (inv *Investment) clear() { inv.trades = inv.trades[:0] }

// RecordTrade appends a trade of the given amount to the ledger.
//
// When day is not a trading day of the asset, it snaps forward to the next
// one; it fails with NoDataAfterError when no trading day follows. The
// trade's quantity is amount divided by the closing price of the resolved
// day.
func (inv *Investment) RecordTrade(day date.Date, kind TradeKind, amount decimal.Decimal) (Trade, error) {
	bar, ok := inv.asset.prices.Get(day)
	if !ok {
		next, nextBar, found := inv.asset.prices.Next(day)
		if !found {
			return Trade{}, NoDataAfterError{Ticker: inv.asset.ticker, Day: day}
		}
		day, bar = next, nextBar
	}
	trade := Trade{
		ID:       uuid.New(),
		Date:     day,
		Kind:     kind,
		Amount:   amount,
		Quantity: amount.Div(decimal.NewFromFloat(bar.Close)),
	}
	inv.trades = append(inv.trades, trade)
	return trade, nil
}

// StateAt replays the ledger and returns the investment state on the given
// day.
//
// When day is not a trading day, it snaps backward to the latest one before
// it; it fails with NoDataBeforeError when the asset has no trading history
// on or before day. The replay folds trades in chronological order (stable
// on ties) using the average-cost method: buys recompute the average share
// price, sells only reduce the share count. A fully-sold or never-opened
// position clamps to the zero state.
//
// StateAt never mutates the investment and is safe to call repeatedly.
func (inv *Investment) StateAt(day date.Date) (State, error) {
	resolved, bar, ok := inv.asset.prices.AsOf(day)
	if !ok {
		return State{}, NoDataBeforeError{Ticker: inv.asset.ticker, Day: day}
	}

	ordered := make([]Trade, len(inv.trades))
	copy(ordered, inv.trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var shares, averagePrice decimal.Decimal
	for _, t := range ordered {
		if t.Date.After(resolved) {
			continue
		}
		switch t.Kind {
		case Buy:
			basis := shares.Mul(averagePrice)
			shares = shares.Add(t.Quantity)
			if !shares.IsZero() { // a zero-quantity buy leaves the average as is
				averagePrice = basis.Add(t.Amount).Div(shares)
			}
		case Sell:
			shares = shares.Sub(t.Quantity)
		}
	}

	if shares.Sign() <= 0 {
		shares = decimal.Zero
		averagePrice = decimal.Zero
	}
	return State{
		AveragePrice: averagePrice,
		Shares:       shares,
		Principal:    shares.Mul(averagePrice),
		Valuation:    shares.Mul(decimal.NewFromFloat(bar.Close)),
	}, nil
}
