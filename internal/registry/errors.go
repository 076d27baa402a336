package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
)

type ErrorType string

const (
	ErrorTypeMissingField   ErrorType = "missing_required_field"
	ErrorTypeUnmatchedRoute ErrorType = "unmatched_route"
	ErrorTypeFileIO         ErrorType = "file_io_error"
	ErrorTypeConfig         ErrorType = "config_error"
	ErrorTypeNetwork        ErrorType = "network_error"
)

// Error describes a problem with a single registry object or pipeline step. Errors of type
// missing_required_field and unmatched_route are recoverable and are reported as warnings.
// An Error is immutable once built: WithContext returns a copy and GetContextMap returns a clone.
type Error struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error

	context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s in %s: %s (caused by: %v)", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(errType ErrorType, operation, message string, cause error) *Error {
	return &Error{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		context:   make(map[string]any),
	}
}

func NewMissingFieldError(operation, file string, missing []string) *Error {
	return NewError(ErrorTypeMissingField, operation, "object is missing required fields", nil).
		WithContext("file", file).
		WithContext("missing", missing)
}

func NewUnmatchedRouteError(cidr, asn string) *Error {
	return NewError(ErrorTypeUnmatchedRoute, "join_geofeed", "no inetnum found for route", nil).
		WithContext("cidr", cidr).
		WithContext("asn", asn)
}

func NewFileIOError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeFileIO, operation, message, cause)
}

func (e *Error) GetContextMap() map[string]any {
	return maps.Clone(e.context)
}

func (e *Error) GetContext(key string) any {
	return e.context[key]
}

func (e *Error) WithContext(key string, value any) *Error {
	cloned := maps.Clone(e.context)
	if cloned == nil {
		cloned = make(map[string]any)
	}
	cloned[key] = value
	return &Error{
		Type:      e.Type,
		Operation: e.Operation,
		Message:   e.Message,
		Cause:     e.Cause,
		context:   cloned,
	}
}

// LogAttrs flattens the error into slog attributes with context keys in sorted order.
func (e *Error) LogAttrs() []any {
	attrs := []any{
		slog.String("error_type", string(e.Type)),
		slog.String("operation", e.Operation),
	}

	ctx := e.GetContextMap()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, ctx[k]))
	}

	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	return attrs
}
