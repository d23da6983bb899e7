package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Money is an exact signed amount with its currency code.
	Money struct {
		Amount   decimal.Decimal
		Currency string
	}

	// Account is a bank account polled by the bot.
	Account struct {
		Name       string
		ExternalID string
	}

	// Transaction is one booked transaction as returned by the source.
	// StableID is empty when the upstream did not provide one.
	Transaction struct {
		InternalID string
		StableID   string
		Date       Date
		Amount     decimal.Decimal
		Currency   string
		Label      string
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyAccountName = errors.New("empty account name")
	ErrEmptyAccountID   = errors.New("empty account id")
	ErrInvalidAccount   = errors.New("invalid account, expected name:id")
	ErrMissingID        = errors.New("transaction has no internal id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// ParseAccount parses the "name:id" form used on the command line and in env.
func ParseAccount(s string) (Account, error) {
	name, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Account{}, ErrInvalidAccount
	}
	a := Account{Name: strings.TrimSpace(name), ExternalID: strings.TrimSpace(id)}
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (a Account) Validate() error {
	if a.Name == "" {
		return ErrEmptyAccountName
	}
	if a.ExternalID == "" {
		return ErrEmptyAccountID
	}
	return nil
}

func (a Account) String() string {
	return a.Name + ":" + a.ExternalID
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.InternalID) == "" {
		return ErrMissingID
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// HasStableID reports whether the upstream supplied a stable transaction id.
func (t Transaction) HasStableID() bool {
	return t.StableID != ""
}

// Money returns the transaction amount with its currency.
func (t Transaction) Money() Money {
	return Money{Amount: t.Amount, Currency: t.Currency}
}

// Identical reports whether two records are equal on every field.
// This is record equality, not transaction identity; see SameIdentity.
func (t Transaction) Identical(o Transaction) bool {
	return t.InternalID == o.InternalID &&
		t.StableID == o.StableID &&
		t.Date.Equal(o.Date.Time) &&
		t.Amount.Equal(o.Amount) &&
		t.Currency == o.Currency &&
		t.Label == o.Label
}
