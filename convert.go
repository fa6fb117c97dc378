package portsim

import (
	"fmt"
	"strings"

	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
)

// FillMethod selects how calendar days without a quoted exchange rate are
// filled after reindexing. Only the two pandas-style methods are valid.
type FillMethod int

const (
	// ForwardFill carries the last known rate forward.
	ForwardFill FillMethod = iota
	// BackwardFill carries the next known rate backward.
	BackwardFill
)

func (m FillMethod) String() string {
	switch m {
	case ForwardFill:
		return "ffill"
	case BackwardFill:
		return "bfill"
	default:
		return "unknown"
	}
}

// ParseFillMethod parses a fill method name ("ffill" or "bfill").
func ParseFillMethod(s string) (FillMethod, error) {
	switch strings.ToLower(s) {
	case "ffill":
		return ForwardFill, nil
	case "bfill":
		return BackwardFill, nil
	default:
		return 0, fmt.Errorf("unknown fillna method: %q (want ffill or bfill)", s)
	}
}

// RateMissingPolicy decides what happens to a price row whose calendar day
// still has no exchange rate after gap filling.
type RateMissingPolicy int

const (
	// DropRow removes the row from the series.
	DropRow RateMissingPolicy = iota
	// KeepNative leaves the row at its original, unconverted price.
	KeepNative
)

func (p RateMissingPolicy) String() string {
	switch p {
	case DropRow:
		return "drop"
	case KeepNative:
		return "keep"
	default:
		return "unknown"
	}
}

// ParseRateMissingPolicy parses a rate-missing policy name ("drop" or "keep").
func ParseRateMissingPolicy(s string) (RateMissingPolicy, error) {
	switch strings.ToLower(s) {
	case "drop":
		return DropRow, nil
	case "keep":
		return KeepNative, nil
	default:
		return 0, fmt.Errorf("unknown rate-missing policy: %q (want drop or keep)", s)
	}
}

// Converter applies a daily exchange-rate series to an asset's price series,
// bringing it into the asset's target currency.
type Converter struct {
	provider MarketDataProvider
	fill     FillMethod
	missing  RateMissingPolicy
	log      zerolog.Logger
}

// NewConverter returns a converter using the given gap-fill method and
// rate-missing policy.
func NewConverter(provider MarketDataProvider, fill FillMethod, missing RateMissingPolicy, log zerolog.Logger) *Converter {
	return &Converter{
		provider: provider,
		fill:     fill,
		missing:  missing,
		log:      log.With().Str("component", "converter").Logger(),
	}
}

// ConvertToTarget converts the asset's loaded rows into its target currency
// in place. It is a no-op when the asset is already converted or quoted in
// the target currency, and it is all-or-nothing: on error the asset's series
// is left untouched and unconverted.
func (c *Converter) ConvertToTarget(a *Asset) error {
	if a.converted || a.nativeCurrency == a.targetCurrency {
		a.converted = true
		return nil
	}
	span := a.Span()
	rates, err := c.provider.ExchangeRate(a.nativeCurrency, a.targetCurrency, span)
	if err != nil {
		return err
	}
	filled := Reindex(rates, c.fill)

	converted := &date.History[Bar]{}
	dropped := 0
	for on, bar := range a.prices.Values() {
		rate, ok := filled.Get(on)
		if !ok {
			// No resolvable rate even after gap filling.
			if c.missing == KeepNative {
				converted.Append(on, bar)
			} else {
				dropped++
			}
			continue
		}
		converted.Append(on, bar.Scale(rate))
	}
	if dropped > 0 {
		c.log.Debug().
			Str("ticker", a.ticker).
			Int("rows", dropped).
			Msg("dropped rows with no exchange rate")
	}
	a.prices = converted
	a.rate = filled
	a.converted = true
	return nil
}

// Reindex expands a rate series to every calendar day between its first and
// last entries, filling the gaps with the given method.
func Reindex(rates *date.History[float64], fill FillMethod) *date.History[float64] {
	out := &date.History[float64]{}
	if rates.Len() == 0 {
		return out
	}
	span := rates.Span()
	switch fill {
	case ForwardFill:
		last, _ := rates.First()
		value, _ := rates.Get(last)
		for on := span.From; !on.After(span.To); on = on.Add(1) {
			if v, ok := rates.Get(on); ok {
				value = v
			}
			out.Append(on, value)
		}
	case BackwardFill:
		next, _ := rates.Latest()
		value, _ := rates.Get(next)
		for on := span.To; !on.Before(span.From); on = on.Add(-1) {
			if v, ok := rates.Get(on); ok {
				value = v
			}
			out.Append(on, value)
		}
	}
	return out
}
