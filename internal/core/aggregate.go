package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is a half-open calendar range [Start, End). A nil End means the
// window is open-ended.
type Window struct {
	Start Date
	End   *Date
}

// Totals is the result of aggregating a window.
type Totals struct {
	Spent  decimal.Decimal
	Earned decimal.Decimal
	Net    decimal.Decimal
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	if d.Before(w.Start) {
		return false
	}
	return w.End == nil || d.Before(*w.End)
}

// Month returns the month the window starts in, used as its label.
func (w Window) Month() time.Month {
	return w.Start.Month()
}

// Aggregate sums the amounts of txs falling in w. Negative amounts go to
// Spent, positive ones to Earned, zero amounts to neither.
func Aggregate(txs []Transaction, w Window) Totals {
	spent := decimal.Zero
	earned := decimal.Zero
	for _, t := range txs {
		if !w.Contains(t.Date) {
			continue
		}
		switch t.Amount.Sign() {
		case -1:
			spent = spent.Add(t.Amount)
		case 1:
			earned = earned.Add(t.Amount)
		}
	}
	return Totals{Spent: spent, Earned: earned, Net: earned.Add(spent)}
}

// MonthWindows returns the windows for two months ago, last month and the
// current month relative to now. The first two are closed, the last one is
// open-ended.
func MonthWindows(now time.Time) []Window {
	thisMonth := NewDate(now.Year(), now.Month(), 1)
	lastMonth := NewDate(now.Year(), now.Month()-1, 1)
	twoMonthsAgo := NewDate(now.Year(), now.Month()-2, 1)
	return []Window{
		{Start: twoMonthsAgo, End: &lastMonth},
		{Start: lastMonth, End: &thisMonth},
		{Start: thisMonth},
	}
}
