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

type transferCmd struct {
	from   string
	to     string
	date   string
	amount string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move value between two plan entries" }
func (*transferCmd) Usage() string {
	return `psim transfer -from <ticker> -to <ticker> -a <amount> [-d <date>]

  Sells the amount from one plan entry and buys it into another. Either
  endpoint may be CASH. The paid-in principal is unchanged, only the
  allocation moves.

Usage Examples:
# Shift 10000 from bonds into stocks.
$ psim transfer -from AGG -to VTI -a 10000

`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Ticker to sell.")
	f.StringVar(&c.to, "to", "", "Ticker to buy.")
	f.StringVar(&c.amount, "a", "", "Amount to move, in the target currency.")
	f.StringVar(&c.date, "d", "", "Transfer date. Defaults to the last day of the data range.")
}

func (c *transferCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" {
		fmt.Fprintln(os.Stderr, "Error: -from and -to are required")
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

	op := portsim.Operation{Kind: portsim.OpTransfer, Date: day, From: c.from, To: c.to, Amount: amount}
	if err := p.Apply(op); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	return appendOperation(op)
}
