package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim"
	"github.com/planwise/portsim/date"
	"github.com/shopspring/decimal"
)

type investCmd struct {
	date   string
	amount string
}

func (*investCmd) Name() string     { return "invest" }
func (*investCmd) Synopsis() string { return "invest an amount across the whole plan" }
func (*investCmd) Usage() string {
	return `psim invest -a <amount> [-d <date>]

  Splits the amount over every plan entry according to its target ratio and
  records the resulting trades. The date defaults to the last day of the
  reconciled data range.

Usage Examples:
# Invest 100000 on the last available day.
$ psim invest -a 100000

# Invest on a specific day.
$ psim invest -a 100000 -d 2024-03-01

`
}

func (c *investCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "a", "", "Amount to invest, in the target currency.")
	f.StringVar(&c.date, "d", "", "Investment date. Defaults to the last day of the data range.")
}

func (c *investCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil || amount.Sign() <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -a must be a positive amount, got %q\n", c.amount)
		return subcommands.ExitUsageError
	}

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

	op := portsim.Operation{Kind: portsim.OpInvestAll, Date: day, Amount: amount}
	if err := p.Apply(op); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return appendOperation(op)
}

// resolveDay parses a -d flag value, defaulting to the last day of the
// portfolio's data range.
func resolveDay(p *portsim.Portfolio, flagValue string) (date.Date, subcommands.ExitStatus) {
	if flagValue == "" {
		return p.DateRange().To, subcommands.ExitSuccess
	}
	day, err := date.Parse(flagValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return date.Date{}, subcommands.ExitUsageError
	}
	return day, subcommands.ExitSuccess
}
