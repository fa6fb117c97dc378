package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim"
)

type rebalanceCmd struct {
	date string
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "realign every position to its plan ratio" }
func (*rebalanceCmd) Usage() string {
	return `psim rebalance [-d <date>]

  Values the portfolio on the given day, then sells overweight entries and
  buys underweight ones until each matches its plan ratio. Running it twice
  on the same day records nothing the second time.

Usage Examples:
$ psim rebalance -d 2024-12-30

`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Rebalance date. Defaults to the last day of the data range.")
}

func (c *rebalanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := appLogger()
	p, closer, err := openPortfolio(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer closer()

	day, status := resolveDay(p, c.date)
	if status != subcommands.ExitSuccess {
		return status
	}

	op := portsim.Operation{Kind: portsim.OpRebalance, Date: day}
	if err := p.Apply(op); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return appendOperation(op)
}
