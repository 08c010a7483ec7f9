package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a Graph failure into a stable category. Tool handlers and
// tests branch on Kind, never on HTTP status codes.
type Kind string

const (
	// KindAuthenticationFailed covers missing credentials and requests
	// Graph rejected with 401 or 403 after the forced re-auth attempt.
	KindAuthenticationFailed Kind = "authentication_failed"
	// KindTokenInvalid marks a cached token that could not be refreshed.
	KindTokenInvalid Kind = "token_invalid"
	// KindRemoteUnavailable covers 5xx responses, timeouts and transport
	// failures that survived the retry budget.
	KindRemoteUnavailable Kind = "remote_unavailable"
	// KindRateLimited means Graph throttled the request for longer than
	// the retry budget allows.
	KindRateLimited Kind = "rate_limited"
	// KindNotFound marks a message, folder or attachment that does not
	// exist in the mailbox.
	KindNotFound Kind = "not_found"
	// KindUnsupportedAttachment marks attachment content no processor can
	// extract text from.
	KindUnsupportedAttachment Kind = "unsupported_attachment"
	// KindMalformedInput covers invalid caller arguments and requests
	// Graph rejected with 400.
	KindMalformedInput Kind = "malformed_input"
)

// Error is the single error type the package returns for Graph failures.
type Error struct {
	Kind    Kind
	Message string
	// StatusCode is the HTTP status that produced the error, or zero when
	// the failure never reached Graph.
	StatusCode int
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an *Error with the given kind and formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause to a kinded error.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or KindRemoteUnavailable when err is
// not a graph error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindRemoteUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// kindForStatus maps an HTTP status to the Kind it produces when retries
// are exhausted or the status is terminal.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindMalformedInput
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthenticationFailed
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindRemoteUnavailable
	}
}

// retryableStatus reports whether a response status is worth retrying.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
