package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bankbot/internal/core"
	"bankbot/internal/log"
	"bankbot/internal/ports"
)

// OutcomeKind tells which variant an Outcome holds.
type OutcomeKind int

const (
	// OutcomeSilent: fetch succeeded, nothing to report (baseline or no news).
	OutcomeSilent OutcomeKind = iota
	// OutcomeReport: new transactions were found and a section was composed.
	OutcomeReport
	// OutcomeFetchFailed: transactions could not be fetched, Text is a warning.
	OutcomeFetchFailed
	// OutcomeCancelled: the context ended during the fetch. Nothing to report
	// and the state is returned untouched.
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSilent:
		return "silent"
	case OutcomeReport:
		return "report"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the result of one account cycle.
type Outcome struct {
	Kind OutcomeKind
	// Text is the account's section of the message; empty when silent.
	Text string
	// NewTransactions holds the newly detected transactions, oldest first.
	NewTransactions []core.Transaction
	// FetchErr is set for OutcomeFetchFailed.
	FetchErr error
	// BalanceErr is set when a report was composed without its balance.
	BalanceErr error
}

// AccountProcessor runs the fetch, diff, aggregate and compose steps for a
// single account.
type AccountProcessor struct {
	source ports.TransactionSource
	filter *LabelFilter
	logger *log.Logger
}

// NewAccountProcessor creates a processor reading from source. filter may be
// nil.
func NewAccountProcessor(source ports.TransactionSource, filter *LabelFilter, logger *log.Logger) *AccountProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &AccountProcessor{
		source: source,
		filter: filter,
		logger: logger.WithComponent(log.ComponentProcessor),
	}
}

// Process runs one cycle for account and returns its outcome together with
// the account's next state. The given state is never modified; callers
// replace their copy with the returned one.
func (p *AccountProcessor) Process(ctx context.Context, account core.Account, state AccountState, now time.Time) (Outcome, AccountState) {
	if p.source == nil {
		err := errors.New("processor not properly initialized")
		return Outcome{Kind: OutcomeFetchFailed, Text: composeFetchFailure(account, err), FetchErr: err}, state.afterFailure()
	}

	fetched, err := p.source.FetchTransactions(ctx, account.ExternalID)
	if err != nil && ctx.Err() != nil {
		p.logger.DebugContext(ctx, "Fetch interrupted by shutdown",
			log.FieldAccount, account.Name,
			log.FieldError, err)
		return Outcome{Kind: OutcomeCancelled}, state
	}
	if err != nil {
		next := state.afterFailure()
		fields := log.NewFields().
			WithAccount(account.Name, account.ExternalID).
			WithOperation(log.OpFetchTransactions).
			WithError(err)
		fields[log.FieldFailures] = next.ConsecutiveFailures
		p.logger.WarnContext(ctx, "Error getting transactions", fields.ToSlice()...)
		return Outcome{Kind: OutcomeFetchFailed, Text: composeFetchFailure(account, err), FetchErr: err}, next
	}

	snapshot := core.Dedupe(fetched)
	next := state.afterSuccess(snapshot)

	if !state.HasBaseline {
		p.logger.InfoContext(ctx, "Baseline established",
			log.FieldAccount, account.Name,
			log.FieldFetched, len(snapshot))
		return Outcome{Kind: OutcomeSilent}, next
	}

	fresh := chronological(snapshot, core.Diff(snapshot, state.LastSeen))
	p.logger.DebugContext(ctx, "Transactions compared",
		log.FieldAccount, account.Name,
		log.FieldFetched, len(snapshot),
		log.FieldNew, len(fresh))

	if len(fresh) == 0 {
		return Outcome{Kind: OutcomeSilent}, next
	}

	var b strings.Builder
	composeHeader(&b, account)
	for _, t := range fresh {
		composeTransaction(&b, t)
	}

	history := p.filter.Apply(next.LastSeen)
	for _, m := range core.SummarizeMonths(history, core.MonthWindows(now), currencyOf(snapshot)) {
		composeMonth(&b, m)
	}

	outcome := Outcome{Kind: OutcomeReport, NewTransactions: fresh}
	balance, err := p.source.FetchBalance(ctx, account.ExternalID)
	if err != nil {
		p.logger.WarnContext(ctx, "Error getting balance", log.NewFields().
			WithAccount(account.Name, account.ExternalID).
			WithOperation(log.OpFetchBalance).
			WithError(err).
			ToSlice()...)
		composeBalanceFailure(&b, account, err)
		outcome.BalanceErr = err
	} else {
		composeBalance(&b, account, balance)
	}
	b.WriteString("\n")

	outcome.Text = b.String()
	return outcome, next
}

// chronological returns the members of fresh in oldest-first order, using
// the position of each record in snapshot, which the source orders newest
// first.
func chronological(snapshot, fresh []core.Transaction) []core.Transaction {
	if len(fresh) == 0 {
		return nil
	}
	byKey := make(map[string][]core.Transaction, len(fresh))
	for _, t := range fresh {
		k := core.IdentityKey(t)
		byKey[k] = append(byKey[k], t)
	}

	out := make([]core.Transaction, 0, len(fresh))
	for i := len(snapshot) - 1; i >= 0; i-- {
		t := snapshot[i]
		for _, f := range byKey[core.IdentityKey(t)] {
			if f.Identical(t) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// currencyOf returns the currency of the newest transaction that has one.
func currencyOf(txs []core.Transaction) string {
	for _, t := range txs {
		if t.Currency != "" {
			return t.Currency
		}
	}
	return ""
}
