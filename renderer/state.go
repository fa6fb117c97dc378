package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/planwise/portsim"
	"github.com/planwise/portsim/date"
)

// StateMarkdown renders the portfolio's positions and totals on a given day.
func StateMarkdown(p *portsim.Portfolio, on date.Date) (string, error) {
	currency := p.TargetCurrency()

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio State on %s", on))
	doc.PlainText(fmt.Sprintf("Data range: %s, reporting in %s.", p.DateRange(), currency))

	rows := make([][]string, 0, len(p.Investments()))
	for _, inv := range p.Investments() {
		state, err := inv.StateAt(on)
		if err != nil {
			return "", err
		}
		asset := inv.Asset()
		ratio := p.Plan()[asset.Ticker()].Ratio
		rows = append(rows, []string{
			asset.Ticker(),
			asset.Type().String(),
			fmt.Sprintf("%.0f%%", ratio*100),
			formatShares(state.Shares),
			formatMoney(state.AveragePrice, currency),
			formatMoney(state.Principal, currency),
			formatMoney(state.Valuation, currency),
		})
	}

	doc.H2("Positions")
	doc.Table(md.TableSet{
		Header: []string{"Ticker", "Type", "Target", "Shares", "Avg Price", "Principal", "Valuation"},
		Rows:   rows,
	})

	valuation, err := p.Valuation(on)
	if err != nil {
		return "", err
	}
	profit, err := p.Profit(on)
	if err != nil {
		return "", err
	}

	doc.H2("Summary")
	summary := [][]string{
		{"Cash", formatMoney(p.Cash(), currency)},
		{"Principal", formatMoney(p.Principal(), currency)},
		{"Valuation", formatMoney(valuation, currency)},
		{"Profit", formatMoney(profit, currency)},
	}
	if rate, err := p.ProfitRate(on); err == nil {
		summary = append(summary, []string{"Profit Rate", formatPercent(rate)})
	}
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   summary,
	})

	return doc.String(), nil
}
