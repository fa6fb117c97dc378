package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim"
	"github.com/planwise/portsim/renderer"
	"github.com/shopspring/decimal"
)

type simulateCmd struct {
	contribution   string
	trials         int
	horizon        int
	rebalanceEvery int
	seed           int64
}

func (*simulateCmd) Name() string { return "simulate" }
func (*simulateCmd) Synopsis() string {
	return "backtest a monthly contribution strategy and project its returns"
}
func (*simulateCmd) Usage() string {
	return `psim simulate -a <amount> [-trials <n>] [-horizon <periods>] [-rebalance <n>] [-seed <n>]

  Replays a monthly contribution of the given amount over the full data
  range, rebalancing every n contributions, then bootstraps the backtest's
  monthly returns into a distribution of terminal profit rates.

  The simulation is read-only: it never touches the operation journal.

Usage Examples:
# Backtest 1000/month, project 10 years ahead.
$ psim simulate -a 1000 -horizon 120

`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.contribution, "a", "", "Amount contributed every month, in the target currency.")
	f.IntVar(&c.trials, "trials", 10000, "Number of bootstrap trials.")
	f.IntVar(&c.horizon, "horizon", 120, "Projection horizon, in months.")
	f.IntVar(&c.rebalanceEvery, "rebalance", 12, "Rebalance every N contributions. 0 disables.")
	f.Int64Var(&c.seed, "seed", 0, "Random seed, for reproducible projections.")
}

func (c *simulateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	contribution, err := decimal.NewFromString(c.contribution)
	if err != nil || contribution.Sign() <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -a must be a positive amount, got %q\n", c.contribution)
		return subcommands.ExitUsageError
	}

	log := appLogger()
	p, closer, err := openPortfolio(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer closer()

	sim := portsim.NewSimulator(p, contribution)
	sim.RebalanceEvery = c.rebalanceEvery
	sim.Seed = c.seed

	bt, err := sim.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	dist, err := sim.Sample(bt, c.trials, c.horizon)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.SimulationMarkdown(bt, dist, contribution, p.TargetCurrency()))
	return subcommands.ExitSuccess
}
