// Package apperr defines the error taxonomy shared by the gateway core.
//
// Every failure crossing a component boundary is classified into a Kind so
// the HTTP layer can map it to a status code and so caller-input errors
// (bad params, bad credentials, quota) are never escalated to alerting the
// way infrastructure failures are.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindInvalidParams     Kind = "INVALID_PARAMS"
	KindInvalidCredential Kind = "INVALID_CREDENTIAL"
	KindCredentialExpired Kind = "CREDENTIAL_EXPIRED"
	KindQuotaExceeded     Kind = "QUOTA_EXCEEDED"
	KindUpstreamError     Kind = "UPSTREAM_ERROR"
	KindGatewayFailure    Kind = "GATEWAY_FAILURE"
	KindStorageFailure    Kind = "STORAGE_FAILURE"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is a tagged gateway error. Reportable marks failures that should
// reach alerting/monitoring; caller-input errors (params, credentials,
// quota) are not reportable.
type Error struct {
	Kind        Kind
	Message     string
	UserMessage string
	Status      int
	Reportable  bool
	Metadata    map[string]any
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a metadata key/value and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// InvalidParams reports missing or malformed caller-supplied fields.
func InvalidParams(message string) *Error {
	return &Error{
		Kind:        KindInvalidParams,
		Message:     message,
		UserMessage: "Please check your inputs.",
		Status:      http.StatusBadRequest,
	}
}

// InvalidCredential reports an API key with no matching record.
func InvalidCredential(message string) *Error {
	return &Error{
		Kind:        KindInvalidCredential,
		Message:     message,
		UserMessage: "Invalid API key.",
		Status:      http.StatusUnauthorized,
	}
}

// CredentialExpired reports an API key past its expiry timestamp.
func CredentialExpired(message string) *Error {
	return &Error{
		Kind:        KindCredentialExpired,
		Message:     message,
		UserMessage: "API key expired.",
		Status:      http.StatusUnauthorized,
	}
}

// QuotaExceeded reports an API key at or over its usage limit.
func QuotaExceeded(message string) *Error {
	return &Error{
		Kind:        KindQuotaExceeded,
		Message:     message,
		UserMessage: "API key usage limit exceeded.",
		Status:      http.StatusTooManyRequests,
	}
}

// Upstream reports a non-2xx or malformed response from an external tool.
// status is the upstream HTTP status (502 for malformed 2xx bodies).
func Upstream(status int, message string) *Error {
	if status < 400 {
		status = http.StatusBadGateway
	}
	return &Error{
		Kind:        KindUpstreamError,
		Message:     message,
		UserMessage: "The tool service returned an error.",
		Status:      status,
		Reportable:  true,
	}
}

// Gateway reports a network-level failure reaching an external tool.
func Gateway(message string, err error) *Error {
	return &Error{
		Kind:        KindGatewayFailure,
		Message:     message,
		UserMessage: "The tool service is unreachable.",
		Status:      http.StatusInternalServerError,
		Reportable:  true,
		Err:         err,
	}
}

// Storage reports a durable-store or cache failure.
func Storage(message string, err error) *Error {
	return &Error{
		Kind:        KindStorageFailure,
		Message:     message,
		UserMessage: "Something went wrong.",
		Status:      http.StatusInternalServerError,
		Reportable:  true,
		Err:         err,
	}
}

// Internal wraps anything unclassified.
func Internal(message string, err error) *Error {
	return &Error{
		Kind:        KindInternal,
		Message:     message,
		UserMessage: "Something went wrong.",
		Status:      http.StatusInternalServerError,
		Reportable:  true,
		Err:         err,
	}
}

// From returns err as an *Error, wrapping unclassified errors as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err.Error(), err)
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Is reports whether err is a gateway error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
