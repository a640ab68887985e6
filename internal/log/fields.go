package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldSessionID  = "session_id"
	FieldUserID     = "user_id"
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
	FieldFetchKey   = "fetch_key"
	FieldGeneration = "generation"
	FieldToken      = "refresh_token"
	FieldTxID       = "transaction_id"
	FieldAccount    = "account"
	FieldAmount     = "amount"
	FieldFrom       = "from_account"
	FieldTo         = "to_account"
	FieldEndpoint   = "endpoint"
	FieldInstance   = "instance"
	FieldTemplate   = "template"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReport    = "report"
	ComponentFilter    = "filter"
	ComponentSummary   = "summary"
	ComponentEdit      = "edit"
	ComponentTransfer  = "transfer"
	ComponentAccounts  = "accounts"
	ComponentRefresh   = "refresh"
	ComponentAPI       = "api"
	ComponentLedger    = "ledger"
	ComponentSession   = "session"
	ComponentPage      = "page"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpReload   = "reload"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpList     = "list"
	OpTransfer = "transfer"
	OpSeed     = "seed"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field, skipping nil errors
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

// WithFetch records the key and generation of a read request.
func (f LogFields) WithFetch(key string, generation uint64) LogFields {
	f[FieldFetchKey] = key
	f[FieldGeneration] = generation
	return f
}

// WithTransfer adds the fields of a transfer attempt.
func (f LogFields) WithTransfer(from, to, amount string) LogFields {
	f[FieldFrom] = from
	f[FieldTo] = to
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
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
