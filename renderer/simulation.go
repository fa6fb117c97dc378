package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/planwise/portsim"
	"github.com/shopspring/decimal"
)

// SimulationMarkdown renders a backtest and the distribution sampled from it.
func SimulationMarkdown(bt portsim.Backtest, dist portsim.Distribution, contribution decimal.Decimal, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Simulation Report")

	doc.H2("Backtest")
	first, last := bt.Dates[0], bt.Dates[len(bt.Dates)-1]
	doc.PlainText(fmt.Sprintf("%d contributions of %s from %s to %s.",
		bt.Steps(), formatMoney(contribution, currency), first, last))
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Paid In", formatMoney(bt.Principals[len(bt.Principals)-1], currency)},
			{"Terminal Valuation", formatMoney(bt.Valuations[len(bt.Valuations)-1], currency)},
			{"Terminal Profit Rate", formatPercent(bt.ProfitRate)},
		},
	})

	doc.H2(fmt.Sprintf("Projection (%d trials, %d periods)", dist.Trials, dist.Horizon))
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Expected Return", formatPercent(dist.ExpectedReturn)},
			{"Std Dev", formatPercent(dist.StdDev)},
			{"5th Percentile", formatPercent(dist.Percentile5)},
			{"Median", formatPercent(dist.Median)},
			{"95th Percentile", formatPercent(dist.Percentile95)},
			{"Loss Probability", formatPercent(dist.LossProbability)},
		},
	})

	return doc.String()
}
