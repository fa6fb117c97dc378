package portsim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/planwise/portsim/date"
	"github.com/shopspring/decimal"
)

func TestOperationMarshalStableOrder(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{
			"invest-all",
			Operation{Kind: OpInvestAll, Date: date.MustParse("2024-01-01"), Amount: decimal.RequireFromString("100000")},
			`{"op":"invest-all","date":"2024-01-01","amount":"100000"}`,
		},
		{
			"invest-to",
			Operation{Kind: OpInvestTo, Date: date.MustParse("2024-01-02"), Ticker: "AAPL", Amount: decimal.RequireFromString("5000")},
			`{"op":"invest-to","date":"2024-01-02","ticker":"AAPL","amount":"5000"}`,
		},
		{
			"transfer",
			Operation{Kind: OpTransfer, Date: date.MustParse("2024-01-03"), From: "AAPL", To: "CASH", Amount: decimal.RequireFromString("250")},
			`{"op":"transfer","date":"2024-01-03","from":"AAPL","to":"CASH","amount":"250"}`,
		},
		{
			"rebalance has no amount",
			Operation{Kind: OpRebalance, Date: date.MustParse("2024-01-04")},
			`{"op":"rebalance","date":"2024-01-04"}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw, err := json.Marshal(test.op)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(raw) != test.want {
				t.Errorf("Marshal = %s\nwant      %s", raw, test.want)
			}
		})
	}
}

func TestOperationsRoundTrip(t *testing.T) {
	ops := []Operation{
		{Kind: OpInvestAll, Date: date.MustParse("2024-01-01"), Amount: decimal.RequireFromString("100000")},
		{Kind: OpTransfer, Date: date.MustParse("2024-01-02"), From: "AAPL", To: "GOOGL", Amount: decimal.RequireFromString("10000")},
		{Kind: OpRebalance, Date: date.MustParse("2024-01-03")},
	}

	var buf bytes.Buffer
	if err := EncodeOperations(&buf, ops...); err != nil {
		t.Fatalf("EncodeOperations: %v", err)
	}

	decoded, err := DecodeOperations(&buf)
	if err != nil {
		t.Fatalf("DecodeOperations: %v", err)
	}
	if len(decoded) != len(ops) {
		t.Fatalf("decoded %d operations, want %d", len(decoded), len(ops))
	}
	for i := range ops {
		if decoded[i].Kind != ops[i].Kind || decoded[i].Date != ops[i].Date ||
			decoded[i].Ticker != ops[i].Ticker || decoded[i].From != ops[i].From ||
			decoded[i].To != ops[i].To || !decoded[i].Amount.Equal(ops[i].Amount) {
			t.Errorf("operation %d = %+v, want %+v", i, decoded[i], ops[i])
		}
	}
}

func TestDecodeOperationsSkipsBlankLines(t *testing.T) {
	input := `{"op":"rebalance","date":"2024-01-03"}

{"op":"invest-all","date":"2024-01-04","amount":"10"}
`
	ops, err := DecodeOperations(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeOperations: %v", err)
	}
	if len(ops) != 2 {
		t.Errorf("decoded %d operations, want 2", len(ops))
	}
}

func TestDecodeOperationsBadLine(t *testing.T) {
	_, err := DecodeOperations(strings.NewReader("not json\n"))
	if err == nil || !strings.Contains(err.Error(), "not json") {
		t.Errorf("DecodeOperations error = %v, want format error quoting the line", err)
	}
}

func TestApplyUnknownKind(t *testing.T) {
	p := newTestPortfolio(t,
		Plan{"AAPL": {1, Stock}},
		map[string]map[string]float64{"AAPL": week(100)})
	if err := p.Apply(Operation{Kind: "split"}); err == nil {
		t.Error("Apply(unknown kind) succeeded, want error")
	}
}

func TestReplayRebuildsState(t *testing.T) {
	build := func(t *testing.T) *Portfolio {
		return newTestPortfolio(t,
			Plan{"AAPL": {0.5, Stock}, "GOOGL": {0.5, Stock}},
			map[string]map[string]float64{"AAPL": week(100), "GOOGL": week(50)})
	}
	ops := []Operation{
		{Kind: OpInvestAll, Date: date.MustParse("2024-01-01"), Amount: decimal.RequireFromString("100000")},
		{Kind: OpTransfer, Date: date.MustParse("2024-01-02"), From: "AAPL", To: "GOOGL", Amount: decimal.RequireFromString("10000")},
		{Kind: OpInvestTo, Date: date.MustParse("2024-01-03"), Ticker: "AAPL", Amount: decimal.RequireFromString("5000")},
		{Kind: OpRebalance, Date: date.MustParse("2024-01-04")},
	}

	direct := build(t)
	for _, op := range ops {
		if err := direct.Apply(op); err != nil {
			t.Fatalf("Apply(%s): %v", op.Kind, err)
		}
	}

	// The same journal, through an encode/decode cycle.
	var buf bytes.Buffer
	if err := EncodeOperations(&buf, ops...); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeOperations(&buf)
	if err != nil {
		t.Fatal(err)
	}
	replayed := build(t)
	if err := replayed.Replay(decoded); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	day := date.MustParse("2024-01-05")
	wantValuation, err := direct.Valuation(day)
	if err != nil {
		t.Fatal(err)
	}
	gotValuation, err := replayed.Valuation(day)
	if err != nil {
		t.Fatal(err)
	}
	if !gotValuation.Equal(wantValuation) {
		t.Errorf("replayed valuation = %s, want %s", gotValuation, wantValuation)
	}
	if !replayed.Principal().Equal(direct.Principal()) {
		t.Errorf("replayed principal = %s, want %s", replayed.Principal(), direct.Principal())
	}
	if !replayed.Cash().Equal(direct.Cash()) {
		t.Errorf("replayed cash = %s, want %s", replayed.Cash(), direct.Cash())
	}
}

func TestReplayFailsWithContext(t *testing.T) {
	p := newTestPortfolio(t,
		Plan{"AAPL": {1, Stock}},
		map[string]map[string]float64{"AAPL": week(100)})
	ops := []Operation{
		{Kind: OpInvestAll, Date: date.MustParse("2024-01-01"), Amount: decimal.RequireFromString("1000")},
		{Kind: OpInvestTo, Date: date.MustParse("2024-01-02"), Ticker: "MSFT", Amount: decimal.RequireFromString("1000")},
	}
	err := p.Replay(ops)
	if err == nil || !strings.Contains(err.Error(), "operation 2") {
		t.Errorf("Replay error = %v, want operation index in message", err)
	}
}
