package core

import "time"

// MonthSummary pairs a window's totals with the month it is labelled with.
type MonthSummary struct {
	Month    time.Month
	Currency string
	Totals   Totals
}

// SummarizeMonths aggregates txs over every window in order.
func SummarizeMonths(txs []Transaction, windows []Window, currency string) []MonthSummary {
	out := make([]MonthSummary, 0, len(windows))
	for _, w := range windows {
		out = append(out, MonthSummary{
			Month:    w.Month(),
			Currency: currency,
			Totals:   Aggregate(txs, w),
		})
	}
	return out
}
