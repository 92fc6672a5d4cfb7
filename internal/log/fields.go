package log

import "expensetracker/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldSaving     = "saving"
	FieldPeriod     = "period"
	FieldCount      = "count"
	FieldRow        = "row"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExpense   = "expense"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentImport    = "import"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpBulk      = "bulk_create"
	OpImport    = "import"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSummarize = "summarize"
	OpSync      = "sync"
	OpPublish   = "publish"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// Fields is a small builder for slog key/value pairs. Order is preserved.
type Fields []any

// NewFields creates an empty field list.
func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) add(k string, v any) Fields { return append(f, k, v) }

func (f Fields) WithComponent(component string) Fields { return f.add(FieldComponent, component) }

func (f Fields) WithRequestID(id string) Fields { return f.add(FieldRequestID, id) }

func (f Fields) WithClientIP(ip string) Fields { return f.add(FieldClientIP, ip) }

func (f Fields) WithOperation(op string) Fields { return f.add(FieldOperation, op) }

// WithError adds the error message. A nil error adds nothing.
func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return f.add(FieldError, err.Error())
}

// WithExpense adds the identifying fields of a record. Descriptions are left
// out on purpose; they are free text typed by the user.
func (f Fields) WithExpense(id string, e core.Expense) Fields {
	if id != "" {
		f = f.add(FieldExpenseID, id)
	}
	return f.add(FieldCategory, e.Category).
		add(FieldAmount, e.Amount).
		add(FieldSaving, e.Saving).
		add(FieldPeriod, core.PeriodKey(e.Date))
}

func (f Fields) WithHTTPRequest(method, path, query, userAgent string) Fields {
	return f.add(FieldMethod, method).
		add(FieldPath, path).
		add(FieldQuery, query).
		add(FieldUserAgent, userAgent)
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	return f.add(FieldStatusCode, statusCode).
		add(FieldDuration, durationMs).
		add(FieldSuccess, statusCode < 400)
}

// ToSlice returns the pairs for a slog call.
func (f Fields) ToSlice() []any {
	return []any(f)
}
