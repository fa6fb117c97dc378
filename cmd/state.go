package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim/renderer"
)

type stateCmd struct {
	date string
}

func (*stateCmd) Name() string     { return "state" }
func (*stateCmd) Synopsis() string { return "report the portfolio state on a given day" }
func (*stateCmd) Usage() string {
	return `psim state [-d <date>]

  Replays the operation journal and prints every position with its share
  count, average price, principal, and valuation, plus portfolio totals.

Usage Examples:
$ psim state
$ psim state -d 2024-06-28

`
}

func (c *stateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Report date. Defaults to the last day of the data range.")
}

func (c *stateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	md, err := renderer.StateMarkdown(p, day)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
