package portsim

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/planwise/portsim/date"
	"github.com/shopspring/decimal"
)

// An Operation is one recorded portfolio action. Operations are the
// persisted form of a session: appended to a JSONL journal as they happen
// and replayed in order to rebuild the portfolio state, so a journal plus
// the price history fully determines the ledger.
type Operation struct {
	Kind   OpKind          `json:"op"`
	Date   date.Date       `json:"date"`
	Ticker string          `json:"ticker,omitempty"` // invest-to target
	From   string          `json:"from,omitempty"`   // transfer source
	To     string          `json:"to,omitempty"`     // transfer destination
	Amount decimal.Decimal `json:"amount,omitempty"`
}

// OpKind names a portfolio operation.
type OpKind string

const (
	OpInvestAll OpKind = "invest-all"
	OpInvestTo  OpKind = "invest-to"
	OpTransfer  OpKind = "transfer"
	OpRebalance OpKind = "rebalance"
)

// Apply replays the operation against the portfolio.
func (p *Portfolio) Apply(op Operation) error {
	switch op.Kind {
	case OpInvestAll:
		return p.InvestAll(op.Date, op.Amount)
	case OpInvestTo:
		return p.InvestTo(op.Ticker, op.Date, op.Amount)
	case OpTransfer:
		return p.Transfer(op.From, op.To, op.Date, op.Amount)
	case OpRebalance:
		return p.Rebalance(op.Date)
	default:
		return fmt.Errorf("unknown operation %q", op.Kind)
	}
}

// MarshalJSON encodes the operation with a stable key order, so journal
// lines diff cleanly under version control.
func (op Operation) MarshalJSON() ([]byte, error) {
	w := new(lineWriter)
	w.Append("op", op.Kind)
	w.Append("date", op.Date)
	w.Optional("ticker", op.Ticker)
	w.Optional("from", op.From)
	w.Optional("to", op.To)
	if !op.Amount.IsZero() {
		w.Append("amount", op.Amount)
	}
	return w.MarshalJSON()
}

// EncodeOperations writes operations to w, one JSON object per line.
func EncodeOperations(w io.Writer, ops ...Operation) error {
	enc := json.NewEncoder(w)
	for _, op := range ops {
		if err := enc.Encode(op); err != nil {
			return fmt.Errorf("cannot encode operation: %w", err)
		}
	}
	return nil
}

// DecodeOperations reads a JSONL operation journal. Blank lines are
// skipped; any malformed line fails with its content in the error.
func DecodeOperations(r io.Reader) ([]Operation, error) {
	var ops []Operation
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var op Operation
		if err := json.Unmarshal([]byte(line), &op); err != nil {
			return nil, fmt.Errorf("format error on line %q: %w", line, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// Replay applies a journal of operations in order.
func (p *Portfolio) Replay(ops []Operation) error {
	for i, op := range ops {
		if err := p.Apply(op); err != nil {
			return fmt.Errorf("cannot replay operation %d (%s on %s): %w", i+1, op.Kind, op.Date, err)
		}
	}
	return nil
}

// lineWriter builds a JSON object with an explicit field order.
// Its zero value is ready to use.
type lineWriter struct {
	bytes.Buffer
	err error
}

// Append adds a key-value pair to the object.
func (w *lineWriter) Append(key string, value any) *lineWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal value for key %q: %w", key, err)
		return w
	}
	fmt.Fprintf(w, "%q:", key)
	w.Write(raw)
	w.WriteString(",")
	return w
}

// Optional adds a key-value pair only when the string is non-empty.
func (w *lineWriter) Optional(key, value string) *lineWriter {
	if value == "" {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON finalizes the object.
func (w *lineWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')
	return final, nil
}
