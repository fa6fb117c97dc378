package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/planwise/portsim/renderer"
)

type tradesCmd struct{}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list every recorded trade per investment" }
func (*tradesCmd) Usage() string {
	return `psim trades

  Replays the operation journal and prints each investment's trade ledger:
  identifier, resolved trading day, side, amount, and quantity.

Usage Examples:
$ psim trades

`
}

func (*tradesCmd) SetFlags(*flag.FlagSet) {}

func (c *tradesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := appLogger()
	p, closer, err := openPortfolio(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer closer()

	printMarkdown(renderer.TradesMarkdown(p))
	return subcommands.ExitSuccess
}
