package cookiefile

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegate/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("# exported from browser\nsid=abc;\n\ncsrf=xyz\n"), 0o600))

	cookies, err := Read(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, "csrf", cookies[1].Name)
}

func TestRead_MissingFile(t *testing.T) {
	cookies, err := Read(filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestRead_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a cookie"), 0o600))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestWatch_DebouncesAndSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("sid=one"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got [][]*http.Cookie
	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, path, testutil.Logger(), func(c []*http.Cookie) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, c)
		})
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	// Same content: no callback.
	require.NoError(t, os.WriteFile(path, []byte("sid=one"), 0o600))
	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	assert.Empty(t, got)
	mu.Unlock()

	// A burst of writes settles into one callback with the final content.
	for _, v := range []string{"sid=two", "sid=three", "sid=four"} {
		require.NoError(t, os.WriteFile(path, []byte(v), 0o600))
	}
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "expected one debounced callback")

	mu.Lock()
	require.Len(t, got, 1)
	require.Len(t, got[0], 1)
	assert.Equal(t, "four", got[0][0].Value)
	mu.Unlock()

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x=1"), 0o600))
	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()

	cancel()
	<-done
}
