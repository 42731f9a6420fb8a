// Package session determines the authentication state of the backend
// session without performing authentication itself.
package session

import (
	"strings"

	"golang.org/x/oauth2"
)

// Status tags an AuthState.
type Status int

const (
	// StatusIndeterminate means the probe failed or was inconclusive.
	StatusIndeterminate Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "indeterminate"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AuthState is the tagged result of a session probe. Token and Payload are
// set only when Status is StatusAuthenticated. A state is always replaced
// wholesale, never merged.
type AuthState struct {
	Status  Status
	Token   *oauth2.Token
	Payload map[string]any
}

// Indeterminate returns the state used when the probe could not conclude.
func Indeterminate() AuthState {
	return AuthState{Status: StatusIndeterminate}
}

// Unauthenticated returns the state of a session without an access token.
func Unauthenticated() AuthState {
	return AuthState{Status: StatusUnauthenticated}
}

// Authenticated returns the state of a session holding token. payload is the
// raw session body.
func Authenticated(token *oauth2.Token, payload map[string]any) AuthState {
	return AuthState{Status: StatusAuthenticated, Token: token, Payload: payload}
}

// IsAuthenticated reports whether the state is StatusAuthenticated.
func (s AuthState) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// AccessToken returns the session access token, or "".
func (s AuthState) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// Scope returns the granted scope string of the session, or "".
func (s AuthState) Scope() string {
	if s.Token == nil {
		return ""
	}
	scope, _ := s.Token.Extra("scope").(string)
	return scope
}

// FromPayload derives a state from a successful session-info body. A body
// without a non-empty access token field is unauthenticated.
func FromPayload(body any) AuthState {
	obj, ok := body.(map[string]any)
	if !ok {
		return Unauthenticated()
	}
	access := stringField(obj, "access_token", "accessToken")
	if access == "" {
		return Unauthenticated()
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: stringField(obj, "refresh_token", "refreshToken"),
		TokenType:    stringField(obj, "token_type", "tokenType"),
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	extra := map[string]any{}
	if scope := stringField(obj, "scope"); scope != "" {
		extra["scope"] = scope
	}
	return Authenticated(token.WithExtra(extra), obj)
}

func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
