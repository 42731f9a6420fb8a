package controller

import "github.com/starford/notegate/internal/session"

// StalePolicy decides what happens to a loaded notes collection when the
// session leaves the authenticated state.
type StalePolicy string

const (
	// StaleClear empties the collection in the same update that leaves
	// the authenticated state.
	StaleClear StalePolicy = "clear"
	// StaleKeep leaves the collection in place until the next successful load.
	StaleKeep StalePolicy = "keep"
)

// Reaction is what the controller does in response to a new AuthState.
type Reaction struct {
	// Load issues exactly one notes listing.
	Load bool
	// Clear empties the notes collection.
	Clear bool
}

// React is the auth transition rule. Every probe replaces the state
// wholesale, so each probe that yields an authenticated state is a fresh
// entry into Authenticated and triggers one load. Leaving Authenticated
// never loads and clears only under StaleClear.
func React(prev, next session.AuthState, policy StalePolicy) Reaction {
	if next.IsAuthenticated() {
		return Reaction{Load: true}
	}
	return Reaction{Clear: policy == StaleClear && prev.IsAuthenticated()}
}
