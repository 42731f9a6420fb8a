package controller

import (
	"context"

	"github.com/starford/notegate/internal/apperr"
	"github.com/starford/notegate/internal/models"
	"github.com/starford/notegate/internal/session"
)

// Phase is the controller's position in its state machine.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseProbingSession  Phase = "probing_session"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseIndeterminate   Phase = "indeterminate"
	PhaseIdle            Phase = "authenticated_idle"
	PhaseLoadingNotes    Phase = "loading_notes"
	PhaseCreating        Phase = "creating"
	PhaseRedirected      Phase = "redirected"
)

// Snapshot is a consistent copy of the controller state. Notes is shared
// with the controller and must not be modified.
type Snapshot struct {
	Phase  Phase
	Auth   session.AuthState
	Notes  []models.Note
	Draft  models.Draft
	Banner string
	// Failure is the error behind Banner, nil when Banner is empty.
	Failure error
	// Loaded is set once a listing has been applied since the last clear.
	Loaded bool
	// Pending counts in-flight network operations.
	Pending    int
	Generation int
	// Created and Listed count successful creates and applied listings
	// since the last Reload.
	Created int
	Listed  int
}

// Err reports why the last operation failed. A redirected instance reports
// apperr.ErrRedirected.
func (s Snapshot) Err() error {
	if s.Phase == PhaseRedirected {
		return apperr.ErrRedirected
	}
	return s.Failure
}

// Idle reports whether no operation is in flight.
func (s Snapshot) Idle() bool {
	return s.Pending == 0
}

type state struct {
	generation int
	started    bool
	redirected bool

	auth   session.AuthState
	notes  []models.Note
	loaded bool
	draft  models.Draft
	banner string
	err    error

	probing  int
	loading  int
	creating int

	listSeq    uint64
	appliedSeq uint64

	created int
	listed  int

	subscribers map[chan Snapshot]struct{}
}

func (s *state) reset() {
	subs := s.subscribers
	gen := s.generation + 1
	*s = state{generation: gen, subscribers: subs}
}

// fail overwrites the banner; it is never queued.
func (s *state) fail(banner string, err error) {
	s.banner = banner
	s.err = err
}

func (s *state) clearBanner() {
	s.banner = ""
	s.err = nil
}

func (s *state) phase() Phase {
	switch {
	case s.redirected:
		return PhaseRedirected
	case !s.started:
		return PhaseInit
	case s.probing > 0:
		return PhaseProbingSession
	}
	switch s.auth.Status {
	case session.StatusUnauthenticated:
		return PhaseUnauthenticated
	case session.StatusIndeterminate:
		return PhaseIndeterminate
	}
	switch {
	case s.creating > 0:
		return PhaseCreating
	case s.loading > 0:
		return PhaseLoadingNotes
	}
	return PhaseIdle
}

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Phase:      s.phase(),
		Auth:       s.auth,
		Notes:      s.notes,
		Draft:      s.draft,
		Banner:     s.banner,
		Failure:    s.err,
		Loaded:     s.loaded,
		Pending:    s.probing + s.loading + s.creating,
		Generation: s.generation,
		Created:    s.created,
		Listed:     s.listed,
	}
}

// publish delivers the current snapshot to every subscriber. A slow
// subscriber loses older snapshots, never the latest one.
func (s *state) publish() {
	snap := s.snapshot()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Snapshot returns the current state. After Close it returns a zero Snapshot.
func (c *Controller) Snapshot() Snapshot {
	resp := make(chan Snapshot, 1)
	ok := c.post(func(s *state) bool {
		resp <- s.snapshot()
		return false
	})
	if !ok {
		return Snapshot{}
	}
	select {
	case snap := <-resp:
		return snap
	case <-c.stopped:
		return Snapshot{}
	}
}

// AuthState returns the live AuthState.
func (c *Controller) AuthState() session.AuthState {
	return c.Snapshot().Auth
}

// Notes returns the current notes collection in server order.
func (c *Controller) Notes() []models.Note {
	return c.Snapshot().Notes
}

// Subscribe returns a channel receiving a snapshot after every state
// change. The channel is closed by Unsubscribe or Close.
func (c *Controller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 16)
	ok := c.post(func(s *state) bool {
		s.subscribers[ch] = struct{}{}
		return false
	})
	if !ok {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Controller) Unsubscribe(sub <-chan Snapshot) {
	c.post(func(s *state) bool {
		for ch := range s.subscribers {
			if ch == sub {
				delete(s.subscribers, ch)
				close(ch)
			}
		}
		return false
	})
}

// WaitIdle blocks until the controller has started and no operation is in
// flight, then returns that snapshot.
func (c *Controller) WaitIdle(ctx context.Context) (Snapshot, error) {
	sub := c.Subscribe()
	defer c.Unsubscribe(sub)

	snap := c.Snapshot()
	for snap.Phase == PhaseInit || !snap.Idle() {
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case next, ok := <-sub:
			if !ok {
				return snap, apperr.ErrClosed
			}
			snap = next
		}
	}
	if c.closed.Load() {
		return snap, apperr.ErrClosed
	}
	return snap, nil
}
