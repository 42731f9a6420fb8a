// Package result collapses backend HTTP responses into a single canonical
// Result shape so that callers never inspect raw status codes or body shapes.
package result

import (
	"fmt"

	"github.com/starford/notegate/internal/apperr"
)

// Kind classifies a failed operation.
type Kind int

const (
	KindNone Kind = iota
	KindUnauthenticated
	KindClientError
	KindServerError
	KindNetworkFailure
	KindParseFailure
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindNetworkFailure:
		return "network_failure"
	case KindParseFailure:
		return "parse_failure"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fixed user-facing messages.
const (
	NetworkFailureMessage   = "Network error: unable to reach the server"
	NotAuthenticatedMessage = "Not authenticated"
	UnexpectedMessage       = "Unexpected response from server"
)

// Result is the canonical outcome of one network operation.
type Result struct {
	OK      bool
	Data    []any
	Kind    Kind
	Message string

	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Body is the best-effort decoded response body.
	Body any
	// Malformed is set when the response body was not valid JSON and was
	// treated as an empty object.
	Malformed bool
}

// Success returns an ok Result carrying data.
func Success(status int, data []any) Result {
	if data == nil {
		data = []any{}
	}
	return Result{OK: true, Data: data, Status: status}
}

// Failure returns a failed Result of the given kind.
func Failure(kind Kind, status int, message string) Result {
	return Result{Kind: kind, Status: status, Message: message}
}

// NetworkFailure returns the Result used for transport-level failures.
func NetworkFailure() Result {
	return Failure(KindNetworkFailure, 0, NetworkFailureMessage)
}

// Err converts a failed Result into an error wrapping the matching apperr
// sentinel. It returns nil for ok results.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	var sentinel error
	switch r.Kind {
	case KindUnauthenticated:
		sentinel = apperr.ErrNotAuthenticated
	case KindClientError:
		sentinel = apperr.ErrClientError
	case KindNetworkFailure:
		sentinel = apperr.ErrNetwork
	case KindParseFailure:
		sentinel = apperr.ErrMalformed
	default:
		sentinel = apperr.ErrServerError
	}
	if r.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, r.Message)
}
