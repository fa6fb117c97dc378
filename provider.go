package portsim

import (
	"fmt"
	"sort"

	"github.com/planwise/portsim/date"
)

// Bar is a daily OHLCV price bar.
type Bar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Scale returns the bar with every price field multiplied by rate.
// Volume is a share count, not a price, and is left untouched.
func (b Bar) Scale(rate float64) Bar {
	return Bar{
		Open:   b.Open * rate,
		High:   b.High * rate,
		Low:    b.Low * rate,
		Close:  b.Close * rate,
		Volume: b.Volume,
	}
}

// RatePair returns the conventional symbol for an exchange-rate series,
// e.g. RatePair("USD", "JPY") == "USDJPY".
func RatePair(base, target string) string { return base + target }

// MarketDataProvider supplies daily price bars and exchange rates.
//
// Implementations must fail with DataUnavailableError rather than return an
// empty history when a ticker cannot be resolved or a range holds no rows.
type MarketDataProvider interface {
	// PriceHistory returns the daily bars for ticker within r, along with the
	// ISO currency code the prices are quoted in. A nil range requests the
	// entire available history.
	PriceHistory(ticker string, r *date.Range) (*date.History[Bar], string, error)

	// InceptionRange returns the earliest and latest dates for which the
	// provider has any data at all for ticker.
	InceptionRange(ticker string) (date.Range, error)

	// ExchangeRate returns the daily base→target conversion rates within r.
	ExchangeRate(base, target string, r date.Range) (*date.History[float64], error)
}

// StaticProvider is an in-memory MarketDataProvider backed by preloaded
// series. It is used by tests and offline replays, and supports distinct
// trading calendars per ticker.
type StaticProvider struct {
	bars       map[string]*date.History[Bar]
	currencies map[string]string
	rates      map[string]*date.History[float64]
}

// NewStaticProvider returns an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		bars:       make(map[string]*date.History[Bar]),
		currencies: make(map[string]string),
		rates:      make(map[string]*date.History[float64]),
	}
}

// AddBars registers the full price history and quote currency of a ticker.
func (p *StaticProvider) AddBars(ticker, currency string, bars *date.History[Bar]) {
	p.bars[ticker] = bars
	p.currencies[ticker] = currency
}

// AddClosePrices registers a price history from closing prices only; the
// other bar fields are derived from the close. Convenient for fixtures.
func (p *StaticProvider) AddClosePrices(ticker, currency string, closes *date.History[float64]) {
	bars := &date.History[Bar]{}
	for on, c := range closes.Values() {
		bars.Append(on, Bar{Open: c, High: c, Low: c, Close: c})
	}
	p.AddBars(ticker, currency, bars)
}

// AddRate registers a daily exchange-rate series under its pair symbol,
// e.g. "USDJPY".
func (p *StaticProvider) AddRate(pair string, rates *date.History[float64]) {
	p.rates[pair] = rates
}

// Tickers returns the registered tickers in lexical order.
func (p *StaticProvider) Tickers() []string {
	out := make([]string, 0, len(p.bars))
	for t := range p.bars {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PriceHistory implements MarketDataProvider.
func (p *StaticProvider) PriceHistory(ticker string, r *date.Range) (*date.History[Bar], string, error) {
	bars, ok := p.bars[ticker]
	if !ok {
		return nil, "", DataUnavailableError{Ticker: ticker, Err: fmt.Errorf("unknown ticker")}
	}
	if r != nil {
		bars = bars.Between(*r)
	} else {
		// Hand out a copy so the caller owns its series exclusively.
		bars = bars.Between(bars.Span())
	}
	if bars.Len() == 0 {
		return nil, "", DataUnavailableError{Ticker: ticker, Err: fmt.Errorf("no rows in %s", r)}
	}
	return bars, p.currencies[ticker], nil
}

// InceptionRange implements MarketDataProvider.
func (p *StaticProvider) InceptionRange(ticker string) (date.Range, error) {
	bars, ok := p.bars[ticker]
	if !ok || bars.Len() == 0 {
		return date.Range{}, DataUnavailableError{Ticker: ticker, Err: fmt.Errorf("unknown ticker")}
	}
	return bars.Span(), nil
}

// ExchangeRate implements MarketDataProvider.
func (p *StaticProvider) ExchangeRate(base, target string, r date.Range) (*date.History[float64], error) {
	pair := RatePair(base, target)
	rates, ok := p.rates[pair]
	if !ok {
		return nil, DataUnavailableError{Ticker: pair, Err: fmt.Errorf("unknown pair")}
	}
	rates = rates.Between(r)
	if rates.Len() == 0 {
		return nil, DataUnavailableError{Ticker: pair, Err: fmt.Errorf("no rates in %s", r)}
	}
	return rates, nil
}

var _ MarketDataProvider = (*StaticProvider)(nil)
