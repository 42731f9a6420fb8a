// Package cookiefile loads backend session cookies from a file and watches it
// for changes. The file holds a raw Cookie header value, for example one
// copied from a browser after signing in; blank lines and lines starting
// with '#' are ignored and the remaining lines are joined.
package cookiefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notegate/internal/backend"
	"github.com/starford/notegate/internal/checksum"
)

const debounce = 200 * time.Millisecond

// ChangeCallback receives the cookies after the file content changed.
type ChangeCallback func(cookies []*http.Cookie)

// Read parses the cookie file. A missing file yields no cookies and no error.
func Read(path string) ([]*http.Cookie, error) {
	cookies, _, err := read(path)
	return cookies, err
}

func read(path string) ([]*http.Cookie, string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read cookie file: %w", err)
	}

	var parts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, strings.TrimSuffix(line, ";"))
	}
	header := strings.Join(parts, "; ")
	cookies, err := backend.ParseCookieHeader(header)
	if err != nil {
		return nil, "", err
	}
	return cookies, checksum.Sum([]byte(header)), nil
}

// Watch watches path until ctx is cancelled and calls cb once per settled
// change of the cookie content. Bursts of writes are debounced; rewrites
// with identical content are ignored. The parent directory is watched so
// that editors replacing the file atomically are seen.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ChangeCallback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	_, last, err := read(abs)
	if err != nil {
		logger.Warn("cookiefile: initial read failed", slog.String("path", abs), slog.String("error", err.Error()))
	}
	logger.Info("cookiefile: watching", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("cookiefile: stopped")
			return nil

		case <-fire:
			cookies, sum, readErr := read(abs)
			if readErr != nil {
				logger.Warn("cookiefile: read failed", slog.String("path", abs), slog.String("error", readErr.Error()))
				continue
			}
			if sum == last {
				continue
			}
			last = sum
			logger.Info("cookiefile: session cookies changed", slog.Int("count", len(cookies)))
			if cb != nil {
				cb(cookies)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				logger.Debug("cookiefile: event", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("cookiefile: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
