package core

// Transaction identity.
//
// The upstream internalTransactionId is not stable across fetches for some
// institutions, while transactionId (the stable id) is sometimes missing.
// Two records denote the same transaction when both carry a stable id and
// those ids match, or, failing that, when their internal ids match. A pair of
// differing stable ids is never rescued by an equal internal id.

// IdentityKey returns the preferred key of t: its stable id when present,
// otherwise its internal id. Keys are prefixed so a stable id can never
// collide with an internal id of the same text.
func IdentityKey(t Transaction) string {
	if t.HasStableID() {
		return "s:" + t.StableID
	}
	return "i:" + t.InternalID
}

// SameIdentity reports whether a and b denote the same logical transaction.
func SameIdentity(a, b Transaction) bool {
	if a.HasStableID() && b.HasStableID() {
		return a.StableID == b.StableID
	}
	return a.InternalID == b.InternalID
}

// identityIndex answers SameIdentity membership queries in O(1).
type identityIndex struct {
	stable map[string]struct{}
	// internal ids of every member, and of members lacking a stable id
	internal         map[string]struct{}
	internalUnstable map[string]struct{}
}

func newIdentityIndex(txs []Transaction) identityIndex {
	idx := identityIndex{
		stable:           make(map[string]struct{}, len(txs)),
		internal:         make(map[string]struct{}, len(txs)),
		internalUnstable: make(map[string]struct{}),
	}
	for _, t := range txs {
		idx.internal[t.InternalID] = struct{}{}
		if t.HasStableID() {
			idx.stable[t.StableID] = struct{}{}
		} else {
			idx.internalUnstable[t.InternalID] = struct{}{}
		}
	}
	return idx
}

// contains reports whether some member has the same identity as t.
func (idx identityIndex) contains(t Transaction) bool {
	if !t.HasStableID() {
		_, ok := idx.internal[t.InternalID]
		return ok
	}
	if _, ok := idx.stable[t.StableID]; ok {
		return true
	}
	// members with a stable id differing from t's can't match
	_, ok := idx.internalUnstable[t.InternalID]
	return ok
}

// Dedupe collapses records that are identical on every field, keeping the
// first occurrence and the input order.
func Dedupe(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	seen := make(map[string][]int, len(txs))
	for _, t := range txs {
		key := IdentityKey(t)
		dup := false
		for _, i := range seen[key] {
			if out[i].Identical(t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[key] = append(seen[key], len(out))
		out = append(out, t)
	}
	return out
}

// Diff returns the deduplicated elements of fetched whose identity is absent
// from lastSeen. The result keeps fetched order but callers must not rely on
// it; presentation order is decided by the caller.
func Diff(fetched, lastSeen []Transaction) []Transaction {
	idx := newIdentityIndex(lastSeen)
	var out []Transaction
	for _, t := range Dedupe(fetched) {
		if !idx.contains(t) {
			out = append(out, t)
		}
	}
	return out
}
