package portsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/planwise/portsim/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CashTicker is the sentinel plan key for the uninvested cash balance.
const CashTicker = "CASH"

// ratioTolerance is how far the plan ratios may sum away from 1.
const ratioTolerance = 1e-8

// maxReconcileRounds caps the date-range reconciliation fixed point. The cap
// turns a potential non-termination into an explicit, reportable failure.
const maxReconcileRounds = 30

// rebalanceTolerance is the smallest valuation drift worth a trade.
var rebalanceTolerance = decimal.New(1, -9)

// PlanEntry is one allocation target of a plan.
type PlanEntry struct {
	Ratio float64   `json:"ratio"`
	Type  AssetType `json:"type"`
}

// Plan maps tickers (or CashTicker) to their target allocation.
type Plan map[string]PlanEntry

// Validate checks that the ratios sum to 1 within tolerance and that every
// entry has a recognized asset type.
func (p Plan) Validate() error {
	var sum float64
	for ticker, entry := range p {
		if entry.Type < Stock || entry.Type > Index {
			return InvalidPlanError{Reason: fmt.Sprintf("unrecognized asset type for %q", ticker)}
		}
		if entry.Ratio < 0 || entry.Ratio > 1 {
			return InvalidPlanError{Reason: fmt.Sprintf("ratio of %q is %v, want within [0, 1]", ticker, entry.Ratio)}
		}
		sum += entry.Ratio
	}
	if math.Abs(sum-1) > ratioTolerance {
		return InvalidPlanError{Reason: fmt.Sprintf("ratios sum to %v, want 1", sum)}
	}
	return nil
}

// Tickers returns the non-cash tickers of the plan in lexical order.
func (p Plan) Tickers() []string {
	out := make([]string, 0, len(p))
	for ticker := range p {
		if ticker != CashTicker {
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out
}

// DecodePlan reads a plan from its JSON form, e.g.
//
//	{"AAPL": {"ratio": 0.7, "type": "stock"}, "CASH": {"ratio": 0.3, "type": "cash"}}
func DecodePlan(r io.Reader) (Plan, error) {
	var plan Plan
	if err := json.NewDecoder(r).Decode(&plan); err != nil {
		return nil, fmt.Errorf("cannot decode plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Portfolio owns a plan, a cash balance, and one investment per non-cash
// plan entry. It replays contributions and reallocations against the assets'
// price histories.
//
// The plan is immutable after construction. All monetary amounts are in the
// target currency.
type Portfolio struct {
	plan      Plan
	currency  string
	cashRatio float64
	cash      decimal.Decimal
	principal decimal.Decimal

	investments []*Investment // sorted by ticker, one per non-cash plan entry
	dateRange   date.Range

	converter *Converter
	log       zerolog.Logger
}

// New builds a portfolio for the given plan, loads every asset's price
// history over the common date range, and converts it to the target
// currency.
//
// It fails with InvalidPlanError on a bad plan, DataUnavailableError when an
// asset cannot be loaded, and DateRangeMismatchError when the assets'
// trading calendars cannot be reconciled.
func New(provider MarketDataProvider, plan Plan, cfg Config, log zerolog.Logger) (*Portfolio, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if money.GetCurrency(cfg.TargetCurrency) == nil {
		return nil, InvalidPlanError{Reason: fmt.Sprintf("unknown target currency %q", cfg.TargetCurrency)}
	}

	p := &Portfolio{
		plan:      plan,
		currency:  cfg.TargetCurrency,
		converter: NewConverter(provider, cfg.Fill, cfg.RateMissing, log),
		log:       log.With().Str("component", "portfolio").Logger(),
	}
	if entry, ok := plan[CashTicker]; ok {
		p.cashRatio = entry.Ratio
	}
	for _, ticker := range plan.Tickers() {
		asset, err := NewAsset(provider, plan[ticker].Type, ticker, cfg.TargetCurrency)
		if err != nil {
			return nil, err
		}
		p.investments = append(p.investments, NewInvestment(asset))
	}
	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p, nil
}

// fetchAll loads and converts every asset over r.
func (p *Portfolio) fetchAll(r date.Range) error {
	for _, inv := range p.investments {
		if err := inv.asset.Fetch(&r); err != nil {
			return err
		}
		if err := p.converter.ConvertToTarget(inv.asset); err != nil {
			return err
		}
	}
	return nil
}

// spans returns the loaded row span per ticker.
func (p *Portfolio) spans() map[string]date.Range {
	out := make(map[string]date.Range, len(p.investments))
	for _, inv := range p.investments {
		out[inv.asset.ticker] = inv.asset.Span()
	}
	return out
}

// agreedSpan returns the common loaded span when every asset starts and ends
// on the same trading day.
func (p *Portfolio) agreedSpan() (date.Range, bool) {
	var common date.Range
	for i, inv := range p.investments {
		span := inv.asset.Span()
		if i == 0 {
			common = span
			continue
		}
		if span != common {
			return date.Range{}, false
		}
	}
	return common, true
}

// commonSpan narrows to the latest loaded start and the earliest loaded end.
func (p *Portfolio) commonSpan() date.Range {
	var common date.Range
	for i, inv := range p.investments {
		span := inv.asset.Span()
		if i == 0 {
			common = span
			continue
		}
		common = common.Intersect(span)
	}
	return common
}

// reconcile establishes the common [start, end] trading-date interval across
// all held assets.
//
// Trading calendars differ per exchange, so after an initial fetch over the
// intersection of the assets' inception ranges, the loaded row sets may
// still disagree on their first or last date. Each round narrows the range
// to the latest start and earliest end and refetches everything, until all
// assets agree on both endpoints or the round budget runs out.
func (p *Portfolio) reconcile() error {
	var r date.Range
	for i, inv := range p.investments {
		if i == 0 {
			r = inv.asset.Inception()
			continue
		}
		r = r.Intersect(inv.asset.Inception())
	}
	if !r.IsValid() {
		spans := make(map[string]date.Range, len(p.investments))
		for _, inv := range p.investments {
			spans[inv.asset.ticker] = inv.asset.Inception()
		}
		return DateRangeMismatchError{Spans: spans}
	}
	if err := p.fetchAll(r); err != nil {
		return err
	}
	for round := 0; round < maxReconcileRounds; round++ {
		if span, ok := p.agreedSpan(); ok {
			p.dateRange = span
			p.log.Debug().Int("rounds", round).Stringer("range", span).Msg("date range reconciled")
			return nil
		}
		r = p.commonSpan()
		// Narrowing to an empty span means the calendars have no trading day
		// in common, not that a ticker is unresolvable.
		if !r.IsValid() {
			return DateRangeMismatchError{Rounds: round + 1, Spans: p.spans()}
		}
		if err := p.fetchAll(r); err != nil {
			var unavailable DataUnavailableError
			if errors.As(err, &unavailable) {
				return DateRangeMismatchError{Rounds: round + 1, Spans: p.spans()}
			}
			return err
		}
	}
	span, ok := p.agreedSpan()
	if !ok {
		return DateRangeMismatchError{Rounds: maxReconcileRounds, Spans: p.spans()}
	}
	p.dateRange = span
	return nil
}

// Plan returns the portfolio's plan. Callers must not modify it.
func (p *Portfolio) Plan() Plan { return p.plan }

// TargetCurrency returns the ISO code all amounts are denominated in.
func (p *Portfolio) TargetCurrency() string { return p.currency }

// Cash returns the current uninvested balance.
func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

// Principal returns the cumulative paid-in capital. It is increased by
// contributions only; transfers and rebalances never change it.
func (p *Portfolio) Principal() decimal.Decimal { return p.principal }

// DateRange returns the common trading-date interval established at
// construction.
func (p *Portfolio) DateRange() date.Range { return p.dateRange }

// Investments returns the held investments, sorted by ticker.
func (p *Portfolio) Investments() []*Investment { return p.investments }

// Investment returns the investment holding the given ticker.
func (p *Portfolio) Investment(ticker string) (*Investment, bool) {
	for _, inv := range p.investments {
		if inv.asset.ticker == ticker {
			return inv, true
		}
	}
	return nil, false
}

// InvestAll contributes amount across the whole plan: every investment
// receives a buy of its plan share (even a zero-ratio one), the cash
// balance receives the cash share, and the principal grows by amount.
func (p *Portfolio) InvestAll(day date.Date, amount decimal.Decimal) error {
	for _, inv := range p.investments {
		ratio := decimal.NewFromFloat(p.plan[inv.asset.ticker].Ratio)
		if _, err := inv.RecordTrade(day, Buy, amount.Mul(ratio)); err != nil {
			return err
		}
	}
	p.cash = p.cash.Add(amount.Mul(decimal.NewFromFloat(p.cashRatio)))
	p.principal = p.principal.Add(amount)
	return nil
}

// InvestTo contributes amount to a single plan entry. Contributing to
// CashTicker credits the cash balance directly, with no trade recorded.
func (p *Portfolio) InvestTo(ticker string, day date.Date, amount decimal.Decimal) error {
	if ticker == CashTicker {
		p.cash = p.cash.Add(amount)
		p.principal = p.principal.Add(amount)
		return nil
	}
	inv, ok := p.Investment(ticker)
	if !ok {
		return InvestmentNotFoundError{Ticker: ticker}
	}
	if _, err := inv.RecordTrade(day, Buy, amount); err != nil {
		return err
	}
	p.principal = p.principal.Add(amount)
	return nil
}

// Transfer reallocates amount from one plan entry to another: a sell on the
// source, a buy on the destination, with CashTicker endpoints adjusting the
// cash balance directly. It is an internal reallocation and leaves the
// principal unchanged.
//
// The same amount is applied to both legs; the buy is not derived from the
// sell's proceeds.
func (p *Portfolio) Transfer(from, to string, day date.Date, amount decimal.Decimal) error {
	source, sourceOK := p.Investment(from)
	if !sourceOK && from != CashTicker {
		return InvestmentNotFoundError{Ticker: from}
	}
	dest, destOK := p.Investment(to)
	if !destOK && to != CashTicker {
		return InvestmentNotFoundError{Ticker: to}
	}

	if sourceOK {
		if _, err := source.RecordTrade(day, Sell, amount); err != nil {
			return err
		}
	} else {
		p.cash = p.cash.Sub(amount)
	}
	if destOK {
		if _, err := dest.RecordTrade(day, Buy, amount); err != nil {
			return err
		}
	} else {
		p.cash = p.cash.Add(amount)
	}
	return nil
}

// Rebalance trades every holding back to its plan-defined share of the
// total portfolio value on the given day. Holdings above target get a sell
// of the excess, holdings below a buy of the deficit, and the cash balance
// is resynced to its target share directly, not via a trade.
func (p *Portfolio) Rebalance(day date.Date) error {
	total, err := p.Valuation(day)
	if err != nil {
		return err
	}
	for _, inv := range p.investments {
		state, err := inv.StateAt(day)
		if err != nil {
			return err
		}
		target := total.Mul(decimal.NewFromFloat(p.plan[inv.asset.ticker].Ratio))
		diff := state.Valuation.Sub(target)
		// Quantity division rounds at decimal precision; residues below the
		// tolerance are noise, not drift, and retrading them would make
		// rebalancing non-idempotent.
		switch {
		case diff.GreaterThan(rebalanceTolerance):
			if _, err := inv.RecordTrade(day, Sell, diff); err != nil {
				return err
			}
		case diff.LessThan(rebalanceTolerance.Neg()):
			if _, err := inv.RecordTrade(day, Buy, diff.Neg()); err != nil {
				return err
			}
		}
	}
	if p.cashRatio > 0 {
		p.cash = total.Mul(decimal.NewFromFloat(p.cashRatio))
	}
	return nil
}

// Valuation returns the total portfolio value on the given day: the cash
// balance plus every investment's valuation.
func (p *Portfolio) Valuation(day date.Date) (decimal.Decimal, error) {
	total := p.cash
	for _, inv := range p.investments {
		state, err := inv.StateAt(day)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(state.Valuation)
	}
	return total, nil
}

// Profit returns the portfolio value on the given day minus the paid-in
// capital.
func (p *Portfolio) Profit(day date.Date) (decimal.Decimal, error) {
	valuation, err := p.Valuation(day)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.Sub(p.principal), nil
}

// ProfitRate returns the profit on the given day as a fraction of the
// paid-in capital. It fails with ZeroPrincipalError when nothing has been
// contributed yet.
func (p *Portfolio) ProfitRate(day date.Date) (float64, error) {
	if p.principal.IsZero() {
		return 0, ZeroPrincipalError{}
	}
	profit, err := p.Profit(day)
	if err != nil {
		return 0, err
	}
	return profit.Div(p.principal).InexactFloat64(), nil
}

// Reset zeroes the principal and cash and clears every investment's ledger.
// Loaded price data and the reconciled date range are preserved.
func (p *Portfolio) Reset() {
	p.principal = decimal.Zero
	p.cash = decimal.Zero
	for _, inv := range p.investments {
		inv.clear()
	}
}
