package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/planwise/portsim"
)

// TradesMarkdown renders every investment's trade ledger, one table per
// ticker, in insertion order. Each row carries the trade's identifier so a
// ledger entry can be referenced unambiguously.
func TradesMarkdown(p *portsim.Portfolio) string {
	currency := p.TargetCurrency()

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Trade Ledger")

	total := 0
	for _, inv := range p.Investments() {
		trades := inv.Trades()
		if len(trades) == 0 {
			continue
		}
		total += len(trades)

		rows := make([][]string, 0, len(trades))
		for _, trade := range trades {
			rows = append(rows, []string{
				trade.ID.String(),
				trade.Date.String(),
				trade.Kind.String(),
				formatMoney(trade.Amount, currency),
				formatShares(trade.Quantity),
			})
		}
		doc.H2(inv.Asset().Ticker())
		doc.Table(md.TableSet{
			Header: []string{"ID", "Date", "Side", "Amount", "Quantity"},
			Rows:   rows,
		})
	}

	if total == 0 {
		doc.PlainText("No trades recorded.")
	} else {
		doc.PlainText(fmt.Sprintf("%d trades in total.", total))
	}
	return doc.String()
}
