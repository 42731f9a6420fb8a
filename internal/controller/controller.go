// Package controller owns the client-side session and notes state and
// sequences the network operations that change it.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegate/internal/apperr"
	"github.com/starford/notegate/internal/models"
	"github.com/starford/notegate/internal/notes"
	"github.com/starford/notegate/internal/result"
	"github.com/starford/notegate/internal/session"
)

// Banner messages set by the controller itself.
const (
	TitleRequiredMessage = "Title is required"
	LoginPromptMessage   = "You are not logged in. Please log in to continue."
	NavigateFailedPrefix = "Unable to open the login page: "
)

// Prober resolves the current session state.
type Prober interface {
	Probe(ctx context.Context) session.AuthState
}

// Repository performs note operations.
type Repository interface {
	List(ctx context.Context) result.Result
	Create(ctx context.Context, title, content string) result.Result
}

// Navigator performs the full-page redirect to the login endpoint. Navigate
// runs on the controller loop and must not call back into the Controller.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

// Navigate calls f(url).
func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStalePolicy sets the stale-notes policy (default StaleKeep).
func WithStalePolicy(p StalePolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithContext sets the parent context of network operations.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.parent = ctx }
}

// command runs on the loop goroutine and reports whether it changed state.
type command func(s *state) bool

// Controller is the single owner of AuthState, the notes collection, the
// draft and the error banner.
//
// Concurrency model: one loop goroutine owns all state. Public methods post
// commands to it; network operations run in their own goroutines and post
// their completion back, so every state change happens on the loop and a
// completed operation is applied in one step.
type Controller struct {
	prober   Prober
	repo     Repository
	nav      Navigator
	loginURL string
	policy   StalePolicy
	logger   *slog.Logger
	parent   context.Context

	ctx    context.Context
	cancel context.CancelFunc

	cmdCh   chan command
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	tasks   sync.WaitGroup
}

// New creates a Controller and starts its loop. Call Start to begin the
// startup probe.
func New(prober Prober, repo Repository, nav Navigator, loginURL string, opts ...Option) *Controller {
	c := &Controller{
		prober:   prober,
		repo:     repo,
		nav:      nav,
		loginURL: loginURL,
		policy:   StaleKeep,
		logger:   slog.Default(),
		parent:   context.Background(),
		cmdCh:    make(chan command),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "controller"))
	c.ctx, c.cancel = context.WithCancel(c.parent)

	go c.run()
	return c
}

// LoginURL returns the authorization-initiation URL.
func (c *Controller) LoginURL() string {
	return c.loginURL
}

func (c *Controller) run() {
	defer close(c.stopped)

	s := &state{subscribers: make(map[chan Snapshot]struct{})}
	for {
		select {
		case <-c.stopCh:
			for ch := range s.subscribers {
				close(ch)
			}
			return
		case cmd := <-c.cmdCh:
			if cmd(s) {
				s.publish()
			}
		}
	}
}

// post hands cmd to the loop. It returns false once the controller is closed.
func (c *Controller) post(cmd command) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.cmdCh <- cmd:
		return true
	case <-c.stopped:
		return false
	}
}

// Close stops the loop, cancels in-flight requests and waits for them.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.cancel()
		close(c.stopCh)
	}
	<-c.stopped
	c.tasks.Wait()
}

// Start leaves Init and begins the startup session probe. No notes are
// fetched until the probe resolves to an authenticated state.
func (c *Controller) Start() {
	c.post(func(s *state) bool {
		if s.started {
			return false
		}
		s.started = true
		c.startProbe(s)
		return true
	})
}

// Probe re-probes the session.
func (c *Controller) Probe() {
	c.post(func(s *state) bool {
		if c.ignoreRedirected(s, "probe") {
			return false
		}
		s.started = true
		c.startProbe(s)
		return true
	})
}

// Refresh reloads the notes collection. It is a no-op unless authenticated.
// Concurrent refreshes are not deduplicated; only the latest-issued listing
// is applied.
func (c *Controller) Refresh() {
	c.post(func(s *state) bool {
		if c.ignoreRedirected(s, "refresh") {
			return false
		}
		if !s.auth.IsAuthenticated() {
			c.logger.Debug("refresh ignored: not authenticated")
			return false
		}
		c.startList(s)
		return true
	})
}

// UpdateDraft replaces the create-note form buffer.
func (c *Controller) UpdateDraft(title, content string) {
	c.post(func(s *state) bool {
		if c.ignoreRedirected(s, "update draft") {
			return false
		}
		s.draft = models.Draft{Title: title, Content: content}
		return true
	})
}

// CreateNote validates and submits a note. An empty trimmed title sets the
// banner without any network call. Otherwise the title is sent with
// surrounding whitespace trimmed, whatever the current AuthState: a session
// the backend rejects comes back as Unauthenticated and prompts a login.
// On success the draft is cleared and the collection is reloaded once; the
// new note is never inserted locally.
func (c *Controller) CreateNote(title, content string) {
	c.post(func(s *state) bool {
		if c.ignoreRedirected(s, "create note") {
			return false
		}
		s.draft = models.Draft{Title: title, Content: content}
		if err := validateDraft(s.draft); err != nil {
			s.fail(err.Error(), apperr.ErrTitleRequired)
			return true
		}
		c.startCreate(s, s.draft.TrimmedTitle(), content)
		return true
	})
}

// Login redirects to the authorization endpoint. After a successful
// navigation the instance is terminal until Reload.
func (c *Controller) Login() {
	c.post(func(s *state) bool {
		if s.redirected {
			return false
		}
		if err := c.nav.Navigate(c.loginURL); err != nil {
			c.logger.Error("login navigation failed", slog.String("error", err.Error()))
			s.fail(NavigateFailedPrefix+err.Error(), fmt.Errorf("navigate to login: %w", err))
			return true
		}
		c.logger.Info("redirected to login", slog.String("url", c.loginURL))
		s.redirected = true
		return true
	})
}

// Reload discards all client state, as a page reload after the login
// redirect would, and probes the session again.
func (c *Controller) Reload() {
	c.post(func(s *state) bool {
		s.reset()
		s.started = true
		c.logger.Info("reloaded", slog.Int("generation", s.generation))
		c.startProbe(s)
		return true
	})
}

func (c *Controller) ignoreRedirected(s *state, op string) bool {
	if s.redirected {
		c.logger.Debug("operation ignored after login redirect", slog.String("op", op))
	}
	return s.redirected
}

func (c *Controller) startProbe(s *state) {
	s.clearBanner()
	s.probing++
	gen := s.generation
	c.spawn(func(ctx context.Context) command {
		auth := c.prober.Probe(ctx)
		return func(s *state) bool {
			if gen != s.generation {
				return false
			}
			s.probing--
			c.applyAuth(s, auth)
			return true
		}
	})
}

func (c *Controller) applyAuth(s *state, next session.AuthState) {
	prev := s.auth
	s.auth = next
	r := React(prev, next, c.policy)
	c.logger.Debug("auth state replaced",
		slog.String("from", prev.Status.String()),
		slog.String("to", next.Status.String()),
		slog.Bool("load", r.Load),
		slog.Bool("clear", r.Clear))
	if r.Clear {
		s.notes = nil
		s.loaded = false
	}
	if r.Load {
		c.startList(s)
	}
}

func (c *Controller) startList(s *state) {
	s.clearBanner()
	s.loading++
	s.listSeq++
	seq, gen := s.listSeq, s.generation
	c.spawn(func(ctx context.Context) command {
		res := c.repo.List(ctx)
		return func(s *state) bool {
			if gen != s.generation {
				return false
			}
			s.loading--
			c.applyList(s, seq, res)
			return true
		}
	})
}

func (c *Controller) applyList(s *state, seq uint64, res result.Result) {
	if !s.auth.IsAuthenticated() {
		c.logger.Debug("listing dropped: no longer authenticated", slog.Uint64("seq", seq))
		return
	}
	if seq <= s.appliedSeq {
		c.logger.Debug("listing dropped: superseded", slog.Uint64("seq", seq), slog.Uint64("applied", s.appliedSeq))
		return
	}
	s.appliedSeq = seq
	if !res.OK {
		s.fail(bannerFor(res), res.Err())
		return
	}
	s.notes = notes.Collection(res)
	s.loaded = true
	s.listed++
}

func (c *Controller) startCreate(s *state, title, content string) {
	s.clearBanner()
	s.creating++
	gen := s.generation
	c.spawn(func(ctx context.Context) command {
		res := c.repo.Create(ctx, title, content)
		return func(s *state) bool {
			if gen != s.generation {
				return false
			}
			s.creating--
			if !res.OK {
				s.fail(bannerFor(res), res.Err())
				return true
			}
			s.draft = models.Draft{}
			s.created++
			c.startList(s)
			return true
		}
	})
}

// spawn runs op outside the loop and posts the command it returns.
func (c *Controller) spawn(op func(ctx context.Context) command) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		done := op(c.ctx)
		c.post(done)
	}()
}

func bannerFor(res result.Result) string {
	if res.Kind == result.KindUnauthenticated {
		return LoginPromptMessage
	}
	if res.Message == "" {
		return result.UnexpectedMessage
	}
	return res.Message
}

func validateDraft(d models.Draft) error {
	return validation.Validate(strings.TrimSpace(d.Title),
		validation.Required.Error(TitleRequiredMessage),
	)
}
