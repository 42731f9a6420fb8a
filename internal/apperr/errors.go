// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrClientError      = errors.New("client error")
	ErrServerError      = errors.New("server error")
	ErrNetwork          = errors.New("network failure")
	ErrMalformed        = errors.New("malformed response")
	ErrTitleRequired    = errors.New("title is required")
	ErrRedirected       = errors.New("client redirected to login")
	ErrClosed           = errors.New("controller closed")
)
