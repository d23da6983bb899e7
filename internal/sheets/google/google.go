// Package google appends newly detected transactions to a Google Sheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"bankbot/internal/core"
	"bankbot/internal/log"
	"bankbot/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is the column layout of the export sheet.
var Header = []any{"Date", "Account", "Label", "Amount", "Currency", "Stable ID", "Internal ID"}

// Exporter implements ports.TransactionExporter over the Sheets API.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.TransactionExporter = (*Exporter)(nil)

// NewFromEnv creates an exporter authenticated with service account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentials, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewExporter(svc, spreadsheetID, sheetName, logger), nil
}

// NewExporter wraps an existing service.
func NewExporter(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Exporter {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func credentialsFromEnv() ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Export appends one row per transaction after the last filled row.
func (e *Exporter) Export(ctx context.Context, account core.Account, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", e.sheetName)
	vr := &gsheet.ValueRange{Values: toRows(account, txs)}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append rows to %s: %w", e.sheetName, err)
	}

	updated := int64(len(txs))
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRows
	}
	e.logger.InfoContext(ctx, "Transactions exported",
		log.FieldAccount, account.Name,
		log.FieldOperation, log.OpExport,
		"rows", updated)
	return nil
}

// EnsureHeader writes Header to the first row when the sheet is empty.
func (e *Exporter) EnsureHeader(ctx context.Context) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:G1", e.sheetName)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", e.sheetName, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", e.sheetName, err)
	}
	return nil
}

// toRows lays out transactions for a RAW append: labels come from the bank
// and must never be parsed as formulas. The amount is sent as a JSON number
// so the sheet still stores it as one.
func toRows(account core.Account, txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			t.Date.String(),
			account.Name,
			t.Label,
			json.Number(t.Amount.String()),
			t.Currency,
			t.StableID,
			t.InternalID,
		})
	}
	return rows
}
