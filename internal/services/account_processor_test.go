package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankbot/internal/core"
)

type fakeSource struct {
	txs        []core.Transaction
	txErr      error
	balance    core.Money
	balanceErr error

	txCalls      int
	balanceCalls int
}

func (f *fakeSource) FetchTransactions(_ context.Context, _ string) ([]core.Transaction, error) {
	f.txCalls++
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.txs, nil
}

func (f *fakeSource) FetchBalance(_ context.Context, _ string) (core.Money, error) {
	f.balanceCalls++
	if f.balanceErr != nil {
		return core.Money{}, f.balanceErr
	}
	return f.balance, nil
}

var (
	testAccount = core.Account{Name: "Joint", ExternalID: "acc-1"}
	testNow     = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
)

func newTx(id string, day int, amount, label string) core.Transaction {
	return core.Transaction{
		InternalID: "int-" + id,
		StableID:   "st-" + id,
		Date:       core.NewDate(2024, time.March, day),
		Amount:     decimal.RequireFromString(amount),
		Currency:   "EUR",
		Label:      label,
	}
}

func eur(amount string) core.Money {
	return core.Money{Amount: decimal.RequireFromString(amount), Currency: "EUR"}
}

func TestProcess_BaselineSuppressed(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		src := &fakeSource{}
		for i := 0; i < n; i++ {
			src.txs = append(src.txs, newTx(string(rune('a'+i)), 10-i, "-1", "x"))
		}
		p := NewAccountProcessor(src, nil, nil)

		out, next := p.Process(context.Background(), testAccount, AccountState{}, testNow)

		if out.Kind != OutcomeSilent || out.Text != "" {
			t.Fatalf("n=%d: expected silent outcome, got %v %q", n, out.Kind, out.Text)
		}
		if !next.HasBaseline {
			t.Fatalf("n=%d: expected baseline to be set", n)
		}
		if len(next.LastSeen) != n {
			t.Fatalf("n=%d: expected %d last seen, got %d", n, n, len(next.LastSeen))
		}
		if src.balanceCalls != 0 {
			t.Fatalf("n=%d: balance must not be fetched on baseline", n)
		}
	}
}

func TestProcess_ReportsNewTransactionsOldestFirst(t *testing.T) {
	t1 := newTx("1", 1, "-10.00", "Groceries")
	t2 := newTx("2", 2, "-5.00", "Coffee")
	t3 := newTx("3", 3, "25.50", "Refund")
	t4 := newTx("4", 4, "-1.20", "Bus")

	src := &fakeSource{
		// newest first, as the bank returns them
		txs:     []core.Transaction{t4, t3, t2, t1},
		balance: eur("1234.5"),
	}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t2, t1}, HasBaseline: true, ConsecutiveFailures: 2}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if out.Kind != OutcomeReport {
		t.Fatalf("expected report, got %v", out.Kind)
	}
	if len(out.NewTransactions) != 2 || out.NewTransactions[0].Label != "Refund" || out.NewTransactions[1].Label != "Bus" {
		t.Fatalf("unexpected new transactions: %+v", out.NewTransactions)
	}

	want := "_Joint_\n" +
		":small_green_triangle: *25.50 EUR* - Refund\n" +
		"🔻 *-1.20 EUR* - Bus\n" +
		":calendar: January: spent *0.00 EUR* / earned *0.00 EUR* / net *0.00 EUR*\n" +
		":calendar: February: spent *0.00 EUR* / earned *0.00 EUR* / net *0.00 EUR*\n" +
		":calendar: March: spent *-16.20 EUR* / earned *25.50 EUR* / net *9.30 EUR*\n" +
		":sum: _Joint_ balance: *1234.50 EUR*\n\n"
	if out.Text != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", out.Text, want)
	}

	if len(next.LastSeen) != 4 || next.ConsecutiveFailures != 0 || !next.HasBaseline {
		t.Fatalf("unexpected next state: %+v", next)
	}
	if len(state.LastSeen) != 2 {
		t.Fatalf("input state must not be modified")
	}
}

func TestProcess_NoNewTransactionsIsSilent(t *testing.T) {
	t1 := newTx("1", 1, "-10.00", "Groceries")
	relabeled := t1
	relabeled.Label = "GROCERIES LTD"
	relabeled.InternalID = "int-changed"

	src := &fakeSource{txs: []core.Transaction{relabeled}}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t1}, HasBaseline: true}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if out.Kind != OutcomeSilent || out.Text != "" {
		t.Fatalf("expected silent, got %v %q", out.Kind, out.Text)
	}
	if src.balanceCalls != 0 {
		t.Fatalf("balance must not be fetched without new transactions")
	}
	if len(next.LastSeen) != 1 || next.LastSeen[0].Label != "GROCERIES LTD" {
		t.Fatalf("last seen should be replaced by the fresh snapshot: %+v", next.LastSeen)
	}
}

func TestProcess_EmptyFetchAfterBaseline(t *testing.T) {
	src := &fakeSource{txs: nil}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{newTx("1", 1, "-1", "x")}, HasBaseline: true}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if out.Kind != OutcomeSilent {
		t.Fatalf("empty result is a success, got %v", out.Kind)
	}
	if len(next.LastSeen) != 0 || !next.HasBaseline {
		t.Fatalf("unexpected next state: %+v", next)
	}
}

func TestProcess_FetchFailureKeepsState(t *testing.T) {
	t1 := newTx("1", 1, "-10.00", "Groceries")
	src := &fakeSource{txErr: errors.New("503 service unavailable")}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t1}, HasBaseline: true, ConsecutiveFailures: 1}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if out.Kind != OutcomeFetchFailed || out.FetchErr == nil {
		t.Fatalf("expected fetch failure, got %+v", out)
	}
	want := "_Joint_\n:warning: Error getting transactions: 503 service unavailable\n\n"
	if out.Text != want {
		t.Fatalf("unexpected warning %q", out.Text)
	}
	if next.ConsecutiveFailures != 2 || !next.HasBaseline || len(next.LastSeen) != 1 || !next.LastSeen[0].Identical(t1) {
		t.Fatalf("unexpected next state: %+v", next)
	}
}

type cancellingSource struct {
	fakeSource
	cancel context.CancelFunc
}

func (c *cancellingSource) FetchTransactions(ctx context.Context, _ string) ([]core.Transaction, error) {
	c.txCalls++
	c.cancel()
	return nil, ctx.Err()
}

func TestProcess_CancelledFetchLeavesStateUntouched(t *testing.T) {
	t1 := newTx("1", 1, "-10.00", "Groceries")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &cancellingSource{cancel: cancel}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t1}, HasBaseline: true, ConsecutiveFailures: 1}

	out, next := p.Process(ctx, testAccount, state, testNow)

	if out.Kind != OutcomeCancelled || out.Text != "" || out.FetchErr != nil {
		t.Fatalf("expected a silent cancelled outcome, got %+v", out)
	}
	if next.ConsecutiveFailures != 1 || !next.HasBaseline || len(next.LastSeen) != 1 {
		t.Fatalf("state must be unchanged, got %+v", next)
	}
	if src.balanceCalls != 0 {
		t.Fatalf("balance must not be fetched after cancellation")
	}
}

func TestProcess_FetchFailureBeforeBaseline(t *testing.T) {
	src := &fakeSource{txErr: errors.New("unauthorized")}
	p := NewAccountProcessor(src, nil, nil)

	_, next := p.Process(context.Background(), testAccount, AccountState{}, testNow)
	if next.HasBaseline || next.ConsecutiveFailures != 1 {
		t.Fatalf("unexpected next state: %+v", next)
	}

	src.txErr = nil
	src.txs = []core.Transaction{newTx("1", 1, "-1", "x")}
	out, next := p.Process(context.Background(), testAccount, next, testNow)
	if out.Kind != OutcomeSilent || !next.HasBaseline || next.ConsecutiveFailures != 0 {
		t.Fatalf("recovery should establish baseline silently: %v %+v", out.Kind, next)
	}
}

func TestProcess_BalanceFailureKeepsTransactions(t *testing.T) {
	t1 := newTx("1", 1, "-10.00", "Groceries")
	t2 := newTx("2", 2, "-3.00", "Bakery")
	src := &fakeSource{txs: []core.Transaction{t2, t1}, balanceErr: errors.New("no closing balance")}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t1}, HasBaseline: true}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if out.Kind != OutcomeReport || out.BalanceErr == nil {
		t.Fatalf("expected report with balance error, got %+v", out)
	}
	if !strings.Contains(out.Text, "🔻 *-3.00 EUR* - Bakery\n") {
		t.Fatalf("transaction line missing: %s", out.Text)
	}
	if !strings.Contains(out.Text, ":calendar: March:") {
		t.Fatalf("aggregation lines missing: %s", out.Text)
	}
	if !strings.HasSuffix(out.Text, ":warning: _Joint_ Error getting balance: no closing balance\n\n") {
		t.Fatalf("balance warning missing: %s", out.Text)
	}
	if strings.Contains(out.Text, ":sum:") {
		t.Fatalf("balance line should be replaced: %s", out.Text)
	}
	if len(next.LastSeen) != 2 {
		t.Fatalf("state should be updated despite balance failure: %+v", next)
	}
}

func TestProcess_TotalsUseFullHistoryAndFilter(t *testing.T) {
	old := newTx("1", 1, "-100.00", "Rent")
	transfer := newTx("2", 2, "-50.00", "Transfer to savings")
	fresh := newTx("3", 3, "-1.00", "Snack")

	filter, err := NewLabelFilter([]string{"(?i)^transfer"})
	if err != nil {
		t.Fatalf("NewLabelFilter: %v", err)
	}
	src := &fakeSource{txs: []core.Transaction{fresh, transfer, old}, balance: eur("10")}
	p := NewAccountProcessor(src, filter, nil)
	state := AccountState{LastSeen: []core.Transaction{transfer, old}, HasBaseline: true}

	out, _ := p.Process(context.Background(), testAccount, state, testNow)

	if !strings.Contains(out.Text, ":calendar: March: spent *-101.00 EUR* / earned *0.00 EUR* / net *-101.00 EUR*\n") {
		t.Fatalf("totals should cover full history minus excluded labels:\n%s", out.Text)
	}
}

func TestProcess_DuplicateRecordsInFetch(t *testing.T) {
	t1 := newTx("1", 1, "-1.00", "A")
	t2 := newTx("2", 2, "-2.00", "B")
	src := &fakeSource{txs: []core.Transaction{t2, t2, t1}, balance: eur("0")}
	p := NewAccountProcessor(src, nil, nil)
	state := AccountState{LastSeen: []core.Transaction{t1}, HasBaseline: true}

	out, next := p.Process(context.Background(), testAccount, state, testNow)

	if len(out.NewTransactions) != 1 {
		t.Fatalf("duplicates should collapse, got %+v", out.NewTransactions)
	}
	if strings.Count(out.Text, "- B\n") != 1 {
		t.Fatalf("expected a single line for B:\n%s", out.Text)
	}
	if len(next.LastSeen) != 2 {
		t.Fatalf("snapshot should be deduplicated, got %d", len(next.LastSeen))
	}
}

func TestProcess_NilSource(t *testing.T) {
	p := NewAccountProcessor(nil, nil, nil)
	out, next := p.Process(context.Background(), testAccount, AccountState{}, testNow)
	if out.Kind != OutcomeFetchFailed || next.ConsecutiveFailures != 1 {
		t.Fatalf("expected failure outcome, got %+v %+v", out, next)
	}
}

func TestOutcomeKindString(t *testing.T) {
	if OutcomeReport.String() != "report" || OutcomeFetchFailed.String() != "fetch_failed" || OutcomeSilent.String() != "silent" || OutcomeCancelled.String() != "cancelled" {
		t.Fatal("unexpected outcome names")
	}
}

func TestLabelFilter(t *testing.T) {
	if _, err := NewLabelFilter([]string{"("}); err == nil {
		t.Fatal("expected compile error")
	}

	var nilFilter *LabelFilter
	if nilFilter.Excluded("anything") {
		t.Fatal("nil filter must not exclude")
	}

	f, _ := NewLabelFilter([]string{"^VIR ", "savings"})
	txs := []core.Transaction{
		{Label: "VIR to Bob"},
		{Label: "Card payment"},
		{Label: "monthly savings"},
	}
	got := f.Apply(txs)
	if len(got) != 1 || got[0].Label != "Card payment" {
		t.Fatalf("unexpected filter result %+v", got)
	}
}
