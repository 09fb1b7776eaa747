// Package errs provides the unified error type used across the dataset layer.
//
// Fetchers, decoders, the materializer and the registry all return *errs.Error.
// Each layer wraps the error it received instead of replacing it, so the kind
// raised at the bottom (a 404, a missing field on row 7) survives up to the
// caller of Registry.Load. Callers use the Is* predicates, which look at every
// *errs.Error in the cause chain.
//
// Usage:
//
//	tbl, err := reg.Load(ctx, "diabetes")
//	switch {
//	case errs.IsUnknownDataset(err):
//	    // typo in the name, nothing was fetched
//	case errs.IsHTTPStatus(err):
//	    code, _ := errs.StatusCode(err)
//	    ...
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing transport or parser specifics.
type ErrKind int

const (
	ErrKindUnknown ErrKind = iota

	// fetch
	ErrKindUnreachable // connection refused, DNS failure, broken stream
	ErrKindHTTPStatus  // the source answered with a non-success status
	ErrKindTimeout     // context deadline / cancellation / transport timeout
	ErrKindQueryFailed // SQL source rejected the query

	// decode
	ErrKindMalformedPayload     // payload is not the declared encoding / shape
	ErrKindSchemaViolation      // value not representable in the declared type
	ErrKindMissingRequiredField // non-nullable field has no value

	// load
	ErrKindUnknownDataset
	ErrKindFetchFailed
	ErrKindDecodeFailed

	ErrKindInvalidInput // bad arguments from the caller (schema, spec, locator)
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindUnreachable:
		return "unreachable"
	case ErrKindHTTPStatus:
		return "http_status"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindMalformedPayload:
		return "malformed_payload"
	case ErrKindSchemaViolation:
		return "schema_violation"
	case ErrKindMissingRequiredField:
		return "missing_required_field"
	case ErrKindUnknownDataset:
		return "unknown_dataset"
	case ErrKindFetchFailed:
		return "fetch_failed"
	case ErrKindDecodeFailed:
		return "decode_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every package in this module.
// Context fields are set only by the constructors that know them.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // underlying error, preserved for errors.Is / errors.As

	Dataset    string // registry name, set on load errors
	Field      string // schema field name, set on decode errors
	Row        int    // 1-based row index, 0 when not row-specific
	Value      string // received representation, set on schema violations
	StatusCode int    // set on ErrKindHTTPStatus
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// HTTPStatus reports a non-success response from the source at url.
func HTTPStatus(code int, url string) *Error {
	return &Error{
		Kind:       ErrKindHTTPStatus,
		Message:    fmt.Sprintf("GET %s: status %d", url, code),
		StatusCode: code,
	}
}

// Malformed reports a payload that cannot be read as its declared encoding.
func Malformed(msg string, cause error) *Error {
	return Wrap(ErrKindMalformedPayload, msg, cause)
}

// SchemaViolation reports that value at row (1-based) cannot be stored in
// field without loss. want names the declared type.
func SchemaViolation(field string, row int, value, want string) *Error {
	return &Error{
		Kind:    ErrKindSchemaViolation,
		Message: fmt.Sprintf("row %d: field %q expects %s, got %s", row, field, want, value),
		Field:   field,
		Row:     row,
		Value:   value,
	}
}

// MissingRequiredField reports a non-nullable field without a value at row (1-based).
func MissingRequiredField(field string, row int) *Error {
	return &Error{
		Kind:    ErrKindMissingRequiredField,
		Message: fmt.Sprintf("row %d: required field %q is missing", row, field),
		Field:   field,
		Row:     row,
	}
}

// UnknownDataset reports a name the registry has no provider for.
func UnknownDataset(name string) *Error {
	return &Error{
		Kind:    ErrKindUnknownDataset,
		Message: fmt.Sprintf("unknown dataset %q", name),
		Dataset: name,
	}
}

// Load wraps a stage failure for dataset. kind is ErrKindFetchFailed or
// ErrKindDecodeFailed, or ErrKindInvalidInput for a rejected generator spec.
func Load(kind ErrKind, dataset string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("load %q", dataset),
		Cause:   cause,
		Dataset: dataset,
	}
}

// --- Predicates ---

// IsUnreachable reports whether err is a connection or DNS failure.
func IsUnreachable(err error) bool { return hasKind(err, ErrKindUnreachable) }

// IsHTTPStatus reports whether the source answered with a non-success status.
func IsHTTPStatus(err error) bool { return hasKind(err, ErrKindHTTPStatus) }

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool { return hasKind(err, ErrKindTimeout) }

// IsQueryFailed reports whether a SQL source rejected the query.
func IsQueryFailed(err error) bool { return hasKind(err, ErrKindQueryFailed) }

// IsMalformedPayload reports whether the payload could not be parsed at all.
func IsMalformedPayload(err error) bool { return hasKind(err, ErrKindMalformedPayload) }

// IsSchemaViolation reports whether a value did not fit its declared type.
func IsSchemaViolation(err error) bool { return hasKind(err, ErrKindSchemaViolation) }

// IsMissingRequiredField reports whether a non-nullable field had no value.
func IsMissingRequiredField(err error) bool { return hasKind(err, ErrKindMissingRequiredField) }

// IsUnknownDataset reports whether the registry had no provider for the name.
func IsUnknownDataset(err error) bool { return hasKind(err, ErrKindUnknownDataset) }

// IsFetchFailed reports whether a load failed while retrieving the payload.
func IsFetchFailed(err error) bool { return hasKind(err, ErrKindFetchFailed) }

// IsDecodeFailed reports whether a load failed while decoding the payload.
func IsDecodeFailed(err error) bool { return hasKind(err, ErrKindDecodeFailed) }

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool { return hasKind(err, ErrKindInvalidInput) }

// StatusCode returns the HTTP status carried anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	e := find(err, ErrKindHTTPStatus)
	if e == nil {
		return 0, false
	}
	return e.StatusCode, true
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

func hasKind(err error, kind ErrKind) bool {
	return find(err, kind) != nil
}

// find walks every *Error in the chain, outermost first.
func find(err error, kind ErrKind) *Error {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil
		}
		if e.Kind == kind {
			return e
		}
		err = e.Cause
	}
	return nil
}
