package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/notegate/internal"
	"github.com/starford/notegate/internal/apperr"
	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/view"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

// session starts a client for a one-shot command and waits for the
// startup probe and any load it triggered.
type session struct {
	client  *internal.Client
	timeout context.Context
	cancel  context.CancelFunc
}

func openSession(ctx context.Context, cmd *cli.Command, nav controller.Navigator) (*session, controller.Snapshot, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, controller.Snapshot{}, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)

	tctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	client, err := internal.NewClient(tctx, cfg, logger, nav)
	if err != nil {
		cancel()
		return nil, controller.Snapshot{}, err
	}
	s := &session{client: client, timeout: tctx, cancel: cancel}

	client.Controller.Start()
	snap, err := s.wait()
	if err != nil {
		s.close()
		return nil, snap, err
	}
	return s, snap, nil
}

func (s *session) wait() (controller.Snapshot, error) {
	snap, err := s.client.Controller.WaitIdle(s.timeout)
	if err != nil {
		return snap, fmt.Errorf("waiting for backend: %w", err)
	}
	return snap, nil
}

func (s *session) close() {
	s.client.Controller.Close()
	s.cancel()
}

func status(ctx context.Context, cmd *cli.Command) error {
	s, snap, err := openSession(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	printStatus(os.Stdout, view.Project(snap))
	return nil
}

func list(ctx context.Context, cmd *cli.Command) error {
	s, snap, err := openSession(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	v := view.Project(snap)
	if !v.ShowNotes {
		return notSignedIn(v)
	}
	if err := snap.Err(); err != nil {
		failure.Fprintln(os.Stderr, v.Banner)
		return err
	}
	printNotes(os.Stdout, v.Notes)
	return nil
}

func create(ctx context.Context, cmd *cli.Command) error {
	s, snap, err := openSession(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if v := view.Project(snap); !v.ShowNotes {
		return notSignedIn(v)
	}

	s.client.Controller.CreateNote(cmd.String("title"), cmd.String("content"))
	after, err := s.wait()
	if err != nil {
		return err
	}
	v := view.Project(after)
	if err := createErr(snap, after); err != nil {
		failure.Fprintln(os.Stderr, v.Banner)
		return err
	}
	success.Fprintf(os.Stdout, "Created %q\n", strings.TrimSpace(cmd.String("title")))
	printNotes(os.Stdout, v.Notes)
	return nil
}

// createErr reports why a create issued between before and after did not
// succeed. A create counts only once the controller has recorded it.
func createErr(before, after controller.Snapshot) error {
	if after.Generation == before.Generation && after.Created > before.Created {
		return nil
	}
	if err := after.Err(); err != nil {
		return err
	}
	return errors.New("note was not created")
}

func login(ctx context.Context, cmd *cli.Command) error {
	nav := controller.NavigatorFunc(func(url string) error {
		heading.Fprintln(os.Stdout, "Open this URL in a browser to sign in:")
		fmt.Fprintln(os.Stdout, url)
		return nil
	})
	s, snap, err := openSession(ctx, cmd, nav)
	if err != nil {
		return err
	}
	defer s.close()

	if snap.Auth.IsAuthenticated() {
		success.Fprintln(os.Stdout, "Already signed in.")
		return nil
	}
	s.client.Controller.Login()
	snap, err = s.wait()
	if err != nil {
		return err
	}
	if snap.Phase != controller.PhaseRedirected {
		return snap.Err()
	}
	faint.Fprintln(os.Stdout, "Export the session cookie to backend.cookie_file to continue.")
	return nil
}

func notSignedIn(v view.View) error {
	if v.Session.Status == "indeterminate" {
		warning.Fprintln(os.Stderr, "Could not determine the session state; is the backend reachable?")
		return fmt.Errorf("%w: session state unknown", apperr.ErrNetwork)
	}
	warning.Fprintln(os.Stderr, controller.LoginPromptMessage+" Run `notegate login`.")
	return apperr.ErrNotAuthenticated
}

func printStatus(w io.Writer, v view.View) {
	heading.Fprintf(w, "Session: ")
	switch v.Session.Status {
	case "authenticated":
		success.Fprintln(w, v.Session.Status)
	case "unauthenticated":
		warning.Fprintln(w, v.Session.Status)
	default:
		failure.Fprintln(w, v.Session.Status)
	}
	if v.Session.Subject != "" {
		fmt.Fprintf(w, "Subject: %s\n", v.Session.Subject)
	}
	if len(v.Session.Scopes) > 0 {
		fmt.Fprintf(w, "Scopes:  %s\n", strings.Join(v.Session.Scopes, " "))
	}
	if v.Session.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires: %s\n", v.Session.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	if v.ShowNotes {
		fmt.Fprintf(w, "Notes:   %d\n", len(v.Notes))
	}
	if v.Banner != "" {
		failure.Fprintln(w, v.Banner)
	}
}

func printNotes(w io.Writer, notes []view.Note) {
	if len(notes) == 0 {
		faint.Fprintln(w, "No notes yet.")
		return
	}
	for _, n := range notes {
		heading.Fprintf(w, "[%s] ", n.ID)
		fmt.Fprintln(w, n.Title)
		if n.Content != "" {
			faint.Fprintln(w, "    "+n.Content)
		}
	}
}
