package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim"
	"github.com/shopspring/decimal"
)

type investToCmd struct {
	ticker string
	date   string
	amount string
}

func (*investToCmd) Name() string     { return "invest-to" }
func (*investToCmd) Synopsis() string { return "invest an amount into a single plan entry" }
func (*investToCmd) Usage() string {
	return `psim invest-to -t <ticker> -a <amount> [-d <date>]

  Buys a single plan entry for the full amount, ignoring the plan's ratios.
  Use the ticker CASH to deposit directly into the cash balance.

Usage Examples:
# Top up one position.
$ psim invest-to -t AAPL -a 5000

# Deposit into cash.
$ psim invest-to -t CASH -a 20000 -d 2024-03-01

`
}

func (c *investToCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "Plan ticker to invest into.")
	f.StringVar(&c.amount, "a", "", "Amount to invest, in the target currency.")
	f.StringVar(&c.date, "d", "", "Investment date. Defaults to the last day of the data range.")
}

func (c *investToCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ticker == "" {
		fmt.Fprintln(os.Stderr, "Error: -t is required")
		return subcommands.ExitUsageError
	}
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

	op := portsim.Operation{Kind: portsim.OpInvestTo, Date: day, Ticker: c.ticker, Amount: amount}
	if err := p.Apply(op); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return appendOperation(op)
}
