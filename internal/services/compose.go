package services

import (
	"fmt"
	"strings"

	"bankbot/internal/core"
)

const (
	emojiDebit   = "🔻"
	emojiCredit  = ":small_green_triangle:"
	emojiMonth   = ":calendar:"
	emojiBalance = ":sum:"
	emojiWarning = ":warning:"
)

// Section texts use Slack mrkdwn: _italic_ account names, *bold* amounts.

func composeHeader(b *strings.Builder, account core.Account) {
	fmt.Fprintf(b, "_%s_\n", account.Name)
}

func composeTransaction(b *strings.Builder, t core.Transaction) {
	emoji := emojiCredit
	if t.Amount.IsNegative() {
		emoji = emojiDebit
	}
	fmt.Fprintf(b, "%s *%s* - %s\n", emoji, core.FormatAmount(t.Amount, t.Currency), t.Label)
}

func composeMonth(b *strings.Builder, m core.MonthSummary) {
	fmt.Fprintf(b, "%s %s: spent *%s* / earned *%s* / net *%s*\n",
		emojiMonth,
		m.Month,
		core.FormatAmount(m.Totals.Spent, m.Currency),
		core.FormatAmount(m.Totals.Earned, m.Currency),
		core.FormatAmount(m.Totals.Net, m.Currency))
}

func composeBalance(b *strings.Builder, account core.Account, balance core.Money) {
	fmt.Fprintf(b, "%s _%s_ balance: *%s*\n", emojiBalance, account.Name, balance)
}

func composeBalanceFailure(b *strings.Builder, account core.Account, err error) {
	fmt.Fprintf(b, "%s _%s_ Error getting balance: %v\n", emojiWarning, account.Name, err)
}

// composeFetchFailure renders the whole section of an account whose
// transactions could not be fetched.
func composeFetchFailure(account core.Account, err error) string {
	var b strings.Builder
	composeHeader(&b, account)
	fmt.Fprintf(&b, "%s Error getting transactions: %v\n\n", emojiWarning, err)
	return b.String()
}
