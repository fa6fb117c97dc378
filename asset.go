package portsim

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planwise/portsim/date"
)

// AssetType is the kind of instrument an asset represents.
type AssetType int

const (
	Stock AssetType = iota
	Bond
	Cash
	ETF
	Index
)

func (t AssetType) String() string {
	switch t {
	case Stock:
		return "stock"
	case Bond:
		return "bond"
	case Cash:
		return "cash"
	case ETF:
		return "etf"
	case Index:
		return "index"
	default:
		return "unknown"
	}
}

// ParseAssetType parses an asset type name, case-insensitively.
func ParseAssetType(s string) (AssetType, error) {
	switch strings.ToLower(s) {
	case "stock":
		return Stock, nil
	case "bond":
		return Bond, nil
	case "cash":
		return Cash, nil
	case "etf":
		return ETF, nil
	case "index":
		return Index, nil
	default:
		return 0, fmt.Errorf("unknown asset type: %q", s)
	}
}

// MarshalJSON encodes the asset type as its string name.
func (t AssetType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the asset type from its string name.
func (t *AssetType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAssetType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Asset owns one instrument's daily price history and its currency
// conversion state.
//
// An Asset is constructed knowing only its inception range (the full span
// the provider has data for); the actual rows are loaded by Fetch and
// brought into the target currency by a Converter.
type Asset struct {
	ticker         string
	typ            AssetType
	prices         *date.History[Bar]
	rate           *date.History[float64] // gap-filled native→target rates, set by the converter
	nativeCurrency string
	targetCurrency string
	converted      bool
	inception      date.Range

	provider MarketDataProvider
}

// NewAsset declares an asset backed by the given provider and queries its
// inception range. It fails with DataUnavailableError when the provider
// cannot resolve the ticker; callers must not proceed with a half-built asset.
func NewAsset(provider MarketDataProvider, typ AssetType, ticker, targetCurrency string) (*Asset, error) {
	inception, err := provider.InceptionRange(ticker)
	if err != nil {
		return nil, err
	}
	return &Asset{
		ticker:         ticker,
		typ:            typ,
		prices:         &date.History[Bar]{},
		targetCurrency: targetCurrency,
		inception:      inception,
		provider:       provider,
	}, nil
}

// Ticker returns the asset's ticker symbol.
func (a *Asset) Ticker() string { return a.ticker }

// Type returns the asset's instrument kind.
func (a *Asset) Type() AssetType { return a.typ }

// NativeCurrency returns the currency the raw provider data is quoted in.
// It is only known after the first Fetch.
func (a *Asset) NativeCurrency() string { return a.nativeCurrency }

// TargetCurrency returns the currency the series is converted into.
func (a *Asset) TargetCurrency() string { return a.targetCurrency }

// Converted reports whether the loaded rows are in the target currency.
func (a *Asset) Converted() bool { return a.converted }

// Inception returns the full span the provider has data for. This is
// distinct from Span, the range of currently loaded rows.
func (a *Asset) Inception() date.Range { return a.inception }

// Prices returns the loaded price series. The asset owns it exclusively;
// callers must treat it as read-only.
func (a *Asset) Prices() *date.History[Bar] { return a.prices }

// Span returns the range of currently loaded rows.
func (a *Asset) Span() date.Range { return a.prices.Span() }

// Fetch replaces the loaded rows with provider data for r (the entire
// available history when r is nil), records the native currency reported
// by the provider, and resets the conversion state.
func (a *Asset) Fetch(r *date.Range) error {
	bars, currency, err := a.provider.PriceHistory(a.ticker, r)
	if err != nil {
		return err
	}
	a.prices = bars
	a.nativeCurrency = currency
	a.rate = nil
	a.converted = false
	return nil
}
