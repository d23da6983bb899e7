package services

import (
	"fmt"
	"regexp"

	"bankbot/internal/core"
)

// LabelFilter drops transactions whose label matches any configured pattern
// from the spent/earned totals. A nil filter keeps everything.
type LabelFilter struct {
	patterns []*regexp.Regexp
}

// NewLabelFilter compiles the given regular expressions.
func NewLabelFilter(patterns []string) (*LabelFilter, error) {
	f := &LabelFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Excluded reports whether label matches one of the patterns.
func (f *LabelFilter) Excluded(label string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(label) {
			return true
		}
	}
	return false
}

// Apply returns the transactions that are not excluded.
func (f *LabelFilter) Apply(txs []core.Transaction) []core.Transaction {
	if f == nil || len(f.patterns) == 0 {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if !f.Excluded(t.Label) {
			out = append(out, t)
		}
	}
	return out
}
