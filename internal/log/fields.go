package log

import "strconv"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldGroupID       = "group_id"
	FieldExpenseID     = "expense_id"
	FieldPayerID       = "payer_id"
	FieldAmount        = "amount"
	FieldSplitCount    = "split_count"
	FieldExpenseCount  = "expense_count"
	FieldTransferCount = "transfer_count"
	FieldMemberCount   = "member_count"
	FieldCacheHit      = "cache_hit"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentSettlement = "settlement"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpList     = "list"
	OpJoin     = "join"
	OpSettle   = "settle"
	OpExport   = "export"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds the fields identifying a recorded expense
func (f LogFields) WithExpense(groupID, expenseID string, payerID int64, amount string, splits int) LogFields {
	f[FieldGroupID] = groupID
	f[FieldExpenseID] = expenseID
	f[FieldPayerID] = strconv.FormatInt(payerID, 10)
	f[FieldAmount] = amount
	f[FieldSplitCount] = splits
	return f
}

// WithSettlement adds the fields summarising a settlement computation
func (f LogFields) WithSettlement(groupID string, expenses, transfers int, cacheHit bool) LogFields {
	f[FieldGroupID] = groupID
	f[FieldExpenseCount] = expenses
	f[FieldTransferCount] = transfers
	f[FieldCacheHit] = cacheHit
	return f
}

// WithHTTPResponse adds HTTP request/response fields
func (f LogFields) WithHTTPResponse(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
