package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldCycleID      = "cycle_id"
	FieldAccount      = "account"
	FieldAccountID    = "account_id"
	FieldChannel      = "channel"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldFetched      = "fetched"
	FieldNew          = "new_transactions"
	FieldFailures     = "consecutive_failures"
	FieldDuration     = "duration_ms"
	FieldSleep        = "sleep"
	FieldMessageBytes = "message_bytes"
	FieldStatusCode   = "status_code"
	FieldSink         = "sink"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentPoller     = "poller"
	ComponentProcessor  = "processor"
	ComponentGoCardless = "gocardless"
	ComponentSlack      = "slack"
	ComponentAMQP       = "amqp"
	ComponentJournal    = "journal"
	ComponentSheets     = "sheets"
	ComponentStatus     = "status"
	ComponentNotify     = "notify"
)

// Operations defines standard operation names
const (
	OpFetchTransactions = "fetch_transactions"
	OpFetchBalance      = "fetch_balance"
	OpDeliver           = "deliver"
	OpExport            = "export"
	OpRenew             = "renew"
	OpStartup           = "startup"
	OpShutdown          = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithAccount adds account name and id fields
func (f LogFields) WithAccount(name, externalID string) LogFields {
	f[FieldAccount] = name
	f[FieldAccountID] = externalID
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
