package portsim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/planwise/portsim/date"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simulator estimates the return distribution of running a plan as a
// recurring contribution strategy.
//
// It first backtests the strategy over the portfolio's reconciled history:
// a fixed contribution invested across the plan every period, with a
// periodic rebalance. The per-period returns of that replay are then
// bootstrapped to sample terminal profit rates over an arbitrary horizon.
type Simulator struct {
	// Contribution is the amount invested at every step.
	Contribution decimal.Decimal
	// Schedule is the contribution cadence.
	Schedule date.Period
	// RebalanceEvery is how many contributions pass between rebalances.
	// Zero disables rebalancing.
	RebalanceEvery int
	// Seed makes runs reproducible.
	Seed int64

	portfolio *Portfolio
}

// NewSimulator returns a simulator with the usual accumulation settings:
// monthly contributions, yearly rebalance.
func NewSimulator(p *Portfolio, contribution decimal.Decimal) *Simulator {
	return &Simulator{
		Contribution:   contribution,
		Schedule:       date.Monthly,
		RebalanceEvery: 12,
		portfolio:      p,
	}
}

// Backtest is the replay of a contribution strategy over actual history.
type Backtest struct {
	Dates      []date.Date
	Valuations []decimal.Decimal
	Principals []decimal.Decimal
	// Returns holds the per-period portfolio returns, net of contributions.
	Returns []float64
	// ProfitRate is the terminal profit as a fraction of paid-in capital.
	ProfitRate float64
}

// Steps returns the number of contributions made.
func (b Backtest) Steps() int { return len(b.Dates) }

// Run replays the contribution strategy over the portfolio's full date
// range. The portfolio's ledger is reset first and holds the replayed
// trades afterwards, so the caller can inspect the terminal state.
func (s *Simulator) Run() (Backtest, error) {
	p := s.portfolio
	r := p.DateRange()
	if !r.IsValid() {
		return Backtest{}, fmt.Errorf("portfolio has no reconciled date range")
	}

	p.Reset()
	var bt Backtest
	step := 0
	for day := r.From; !day.After(r.To); day = s.Schedule.Step(day) {
		if err := p.InvestAll(day, s.Contribution); err != nil {
			return Backtest{}, err
		}
		step++
		if s.RebalanceEvery > 0 && step%s.RebalanceEvery == 0 {
			if err := p.Rebalance(day); err != nil {
				return Backtest{}, err
			}
		}
		valuation, err := p.Valuation(day)
		if err != nil {
			return Backtest{}, err
		}
		bt.Dates = append(bt.Dates, day)
		bt.Valuations = append(bt.Valuations, valuation)
		bt.Principals = append(bt.Principals, p.Principal())
	}
	if len(bt.Dates) == 0 {
		return Backtest{}, fmt.Errorf("date range %s holds no contribution dates", r)
	}

	// Per-period returns net of the contribution paid in at each step.
	contribution := s.Contribution.InexactFloat64()
	for i := 1; i < len(bt.Valuations); i++ {
		prev := bt.Valuations[i-1].InexactFloat64()
		if prev == 0 {
			continue
		}
		cur := bt.Valuations[i].InexactFloat64()
		bt.Returns = append(bt.Returns, (cur-contribution-prev)/prev)
	}

	rate, err := p.ProfitRate(r.To)
	if err != nil {
		return Backtest{}, err
	}
	bt.ProfitRate = rate
	return bt, nil
}

// Distribution summarizes the sampled terminal profit rates.
type Distribution struct {
	Trials          int
	Horizon         int // periods per trial
	ExpectedReturn  float64
	StdDev          float64
	Percentile5     float64
	Median          float64
	Percentile95    float64
	LossProbability float64 // under a normal fit of the samples
}

// Sample bootstraps the backtest's per-period returns: each trial compounds
// `horizon` periods drawn with replacement, yielding one terminal profit
// rate. Statistics of the sample are computed with gonum.
func (s *Simulator) Sample(bt Backtest, trials, horizon int) (Distribution, error) {
	if len(bt.Returns) == 0 {
		return Distribution{}, fmt.Errorf("backtest has no returns to sample from")
	}
	if trials <= 0 || horizon <= 0 {
		return Distribution{}, fmt.Errorf("trials and horizon must be positive")
	}

	rng := rand.New(rand.NewSource(s.Seed))
	samples := make([]float64, trials)
	for t := range samples {
		growth := 1.0
		for i := 0; i < horizon; i++ {
			growth *= 1 + bt.Returns[rng.Intn(len(bt.Returns))]
		}
		samples[t] = growth - 1
	}
	sort.Float64s(samples)

	mean := stat.Mean(samples, nil)
	sigma := stat.StdDev(samples, nil)
	dist := Distribution{
		Trials:         trials,
		Horizon:        horizon,
		ExpectedReturn: mean,
		StdDev:         sigma,
		Percentile5:    stat.Quantile(0.05, stat.Empirical, samples, nil),
		Median:         stat.Quantile(0.5, stat.Empirical, samples, nil),
		Percentile95:   stat.Quantile(0.95, stat.Empirical, samples, nil),
	}
	if sigma > 0 {
		normal := distuv.Normal{Mu: mean, Sigma: sigma}
		dist.LossProbability = normal.CDF(0)
	} else if mean < 0 {
		dist.LossProbability = 1
	}
	return dist, nil
}
