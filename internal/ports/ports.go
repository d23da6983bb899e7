package ports

import (
	"context"
	"time"

	"bankbot/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionSource reads booked transactions and balances for an account.
	TransactionSource interface {
		// FetchTransactions returns the account's transactions, newest first.
		// An empty slice is a valid, successful result.
		FetchTransactions(ctx context.Context, accountID string) ([]core.Transaction, error)
		// FetchBalance returns the closing booked balance of the account.
		FetchBalance(ctx context.Context, accountID string) (core.Money, error)
	}

	// NotificationSink delivers a composed message to a channel.
	NotificationSink interface {
		PostMessage(ctx context.Context, text, channel string) error
	}

	// TransactionExporter records newly detected transactions somewhere else.
	TransactionExporter interface {
		Export(ctx context.Context, account core.Account, txs []core.Transaction) error
	}

	// DeliveryJournal keeps an append-only audit of delivery attempts.
	DeliveryJournal interface {
		RecordDelivery(ctx context.Context, d Delivery) error
	}
)

// Delivery describes one attempt to post a cycle's message.
type Delivery struct {
	CycleID   string
	Channel   string
	Text      string
	Delivered bool
	Error     string
	At        time.Time
}
