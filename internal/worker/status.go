package worker

import (
	"time"

	"bankbot/internal/services"
)

// AccountSnapshot is a read-only copy of an account's polling status,
// published after every account cycle for the status server.
type AccountSnapshot struct {
	Name                string     `json:"name"`
	HasBaseline         bool       `json:"has_baseline"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSeenCount       int        `json:"last_seen_count"`
	LastOutcome         string     `json:"last_outcome,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// Status is the poller status exposed over HTTP.
type Status struct {
	LastCycleAt *time.Time        `json:"last_cycle_at,omitempty"`
	Accounts    []AccountSnapshot `json:"accounts"`
}

func (p *Poller) publishSnapshot(i int, outcome services.Outcome, state services.AccountState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.snapshots[i]
	now := p.now()
	s.HasBaseline = state.HasBaseline
	s.ConsecutiveFailures = state.ConsecutiveFailures
	s.LastSeenCount = len(state.LastSeen)
	s.LastOutcome = outcome.Kind.String()
	switch {
	case outcome.FetchErr != nil:
		s.LastError = outcome.FetchErr.Error()
	case outcome.BalanceErr != nil:
		s.LastSuccessAt = &now
		s.LastError = outcome.BalanceErr.Error()
	default:
		s.LastSuccessAt = &now
		s.LastError = ""
	}
	p.snapshots[i] = s
}

// Status returns a copy of the current status. Safe for concurrent use.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	accounts := make([]AccountSnapshot, len(p.snapshots))
	copy(accounts, p.snapshots)
	st := Status{Accounts: accounts}
	if !p.lastCycle.IsZero() {
		last := p.lastCycle
		st.LastCycleAt = &last
	}
	return st
}
