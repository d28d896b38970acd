package log

import "time"

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldQuery           = "query"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldStartDate       = "start_date"
	FieldEndDate         = "end_date"
	FieldNameFilter      = "name_filter"
	FieldRecordCount     = "record_count"
	FieldBucketCount     = "bucket_count"
	FieldRecordDate      = "record_date"
	FieldDefaultedFields = "defaulted_fields"
	FieldFamilyID        = "family_id"
	FieldFamilyName      = "family_name"
	FieldRowCount        = "row_count"
	FieldSupplierCount   = "supplier_count"
	FieldExportID        = "export_id"
	FieldExportKind      = "export_kind"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentReport  = "report"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
)

// Operations defines standard operation names
const (
	OpAggregate  = "aggregate"
	OpSeries     = "series"
	OpDrilldown  = "drilldown"
	OpComparison = "comparison"
	OpQuote      = "quote"
	OpExport     = "export"
	OpPublish    = "publish"
	OpRead       = "read"
	OpList       = "list"
	OpUpsert     = "upsert"
	OpDelete     = "delete"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

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

// WithRange adds the date range of a ledger query. Zero dates are omitted.
func (f LogFields) WithRange(start, end time.Time) LogFields {
	if !start.IsZero() {
		f[FieldStartDate] = start.Format("2006-01-02")
	}
	if !end.IsZero() {
		f[FieldEndDate] = end.Format("2006-01-02")
	}
	return f
}

func (f LogFields) WithFamily(id int64, name string) LogFields {
	f[FieldFamilyID] = id
	if name != "" {
		f[FieldFamilyName] = name
	}
	return f
}

func (f LogFields) WithExport(id, kind string) LogFields {
	f[FieldExportID] = id
	f[FieldExportKind] = kind
	return f
}

func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
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
