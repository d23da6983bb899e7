package services

import "bankbot/internal/core"

// AccountState is the poller's memory of one account between cycles.
// The zero value is the uninitialized state: no baseline, nothing seen.
type AccountState struct {
	LastSeen            []core.Transaction
	ConsecutiveFailures int
	HasBaseline         bool
}

// afterFailure returns the state following a failed transactions fetch.
// LastSeen and HasBaseline are carried over unchanged.
func (s AccountState) afterFailure() AccountState {
	s.ConsecutiveFailures++
	return s
}

// afterSuccess returns the state following a successful fetch of snapshot.
func (s AccountState) afterSuccess(snapshot []core.Transaction) AccountState {
	return AccountState{
		LastSeen:            snapshot,
		ConsecutiveFailures: 0,
		HasBaseline:         true,
	}
}
