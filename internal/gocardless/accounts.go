package gocardless

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bankbot/internal/core"
	"bankbot/internal/log"
	"bankbot/internal/ports"
)

var _ ports.TransactionSource = (*Client)(nil)

const (
	endpointTransactions = "transactions"
	endpointBalances     = "balances"

	closingBooked = "closingBooked"
	unknownLabel  = "?"
)

type amount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type bookedTransaction struct {
	InternalTransactionID                  string   `json:"internalTransactionId"`
	TransactionID                          string   `json:"transactionId"`
	BookingDate                            string   `json:"bookingDate"`
	TransactionAmount                      amount   `json:"transactionAmount"`
	RemittanceInformationUnstructuredArray []string `json:"remittanceInformationUnstructuredArray"`
	RemittanceInformationUnstructured      string   `json:"remittanceInformationUnstructured"`
}

type transactionsResponse struct {
	Transactions struct {
		Booked []bookedTransaction `json:"booked"`
	} `json:"transactions"`
}

type balancesResponse struct {
	Balances []struct {
		BalanceAmount amount `json:"balanceAmount"`
		BalanceType   string `json:"balanceType"`
	} `json:"balances"`
}

// FetchTransactions returns the booked transactions of accountID, newest
// first as the API orders them.
func (c *Client) FetchTransactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	if err := c.spend(accountID, endpointTransactions); err != nil {
		return nil, err
	}

	var resp transactionsResponse
	endpoint := fmt.Sprintf("accounts/%s/transactions/", url.PathEscape(accountID))
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	txs := make([]core.Transaction, 0, len(resp.Transactions.Booked))
	for i, b := range resp.Transactions.Booked {
		t, err := b.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("failed to parse booked transaction %d: %w", i, err)
		}
		txs = append(txs, t)
	}

	c.logger.DebugContext(ctx, "Transactions fetched",
		log.FieldAccountID, accountID,
		log.FieldFetched, len(txs))
	return txs, nil
}

// FetchBalance returns the closingBooked balance of accountID.
func (c *Client) FetchBalance(ctx context.Context, accountID string) (core.Money, error) {
	if err := c.spend(accountID, endpointBalances); err != nil {
		return core.Money{}, err
	}

	var resp balancesResponse
	endpoint := fmt.Sprintf("accounts/%s/balances/", url.PathEscape(accountID))
	if err := c.request(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return core.Money{}, err
	}

	for _, b := range resp.Balances {
		if b.BalanceType != closingBooked {
			continue
		}
		value, err := core.ParseAmount(b.BalanceAmount.Amount)
		if err != nil {
			return core.Money{}, fmt.Errorf("failed to parse balance %q: %w", b.BalanceAmount.Amount, err)
		}
		return core.Money{Amount: value, Currency: b.BalanceAmount.Currency}, nil
	}
	return core.Money{}, ErrNoClosingBalance
}

func (b bookedTransaction) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(b.BookingDate)
	if err != nil {
		return core.Transaction{}, err
	}
	value, err := core.ParseAmount(b.TransactionAmount.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		InternalID: b.InternalTransactionID,
		StableID:   b.TransactionID,
		Date:       date,
		Amount:     value,
		Currency:   b.TransactionAmount.Currency,
		Label:      b.label(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (b bookedTransaction) label() string {
	if len(b.RemittanceInformationUnstructuredArray) > 0 && b.RemittanceInformationUnstructuredArray[0] != "" {
		return b.RemittanceInformationUnstructuredArray[0]
	}
	if b.RemittanceInformationUnstructured != "" {
		return b.RemittanceInformationUnstructured
	}
	return unknownLabel
}
