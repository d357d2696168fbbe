package cancel

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docfold/pagescribe/internal/observability"
)

func newTestController(baseURL string) *Controller {
	return NewController(baseURL, "test-key", observability.Nop())
}

func TestRequestStopIsOneShot(t *testing.T) {
	c := newTestController("http://localhost:0")

	calls := 0
	c.RegisterAttempt(func() { calls++ })

	assert.False(t, c.Stopped())
	c.RequestStop()
	c.RequestStop()
	c.RequestStop()

	assert.True(t, c.Stopped())
	assert.Equal(t, 1, calls, "the registered interrupt fires exactly once")
}

func TestInterruptCurrentWithoutRegistration(t *testing.T) {
	c := newTestController("http://localhost:0")

	// Must not panic with nothing registered.
	c.InterruptCurrent()

	token := c.RegisterAttempt(func() {})
	c.ClearAttempt(token)
	c.InterruptCurrent()
}

func TestRegisterAttemptReplacesPrevious(t *testing.T) {
	c := newTestController("http://localhost:0")

	var got string
	c.RegisterAttempt(func() { got = "first" })
	c.RegisterAttempt(func() { got = "second" })

	c.InterruptCurrent()
	assert.Equal(t, "second", got)
}

func TestStaleClearKeepsNewRegistration(t *testing.T) {
	c := newTestController("http://localhost:0")

	// A timed-out attempt's goroutine clears late, after the next page's
	// attempt has already registered.
	stale := c.RegisterAttempt(func() {})

	fired := false
	c.RegisterAttempt(func() { fired = true })

	c.ClearAttempt(stale)
	c.InterruptCurrent()

	assert.True(t, fired, "a stale clear must not remove the current registration")
}

func TestStaleGenerationIDIgnored(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := newTestController(server.URL)

	stale := c.RegisterAttempt(func() {})
	c.RegisterAttempt(func() {})

	c.SetGenerationID(stale, "gen-dead")
	c.InterruptCurrent()

	assert.False(t, called, "an id published under a superseded token must not be cancelled remotely")
}

func TestInterruptCurrentCancelsGenerationServerSide(t *testing.T) {
	var mu sync.Mutex
	var path, auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestController(server.URL)
	token := c.RegisterAttempt(func() {})
	c.SetGenerationID(token, "gen-42")

	c.InterruptCurrent()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/chat/completions/gen-42/cancel", path)
	assert.Equal(t, "Bearer test-key", auth)
}

func TestClearAttemptForgetsGenerationID(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := newTestController(server.URL)
	token := c.RegisterAttempt(func() {})
	c.SetGenerationID(token, "gen-stale")
	c.ClearAttempt(token)

	c.InterruptCurrent()
	assert.False(t, called, "no remote cancel after the attempt is cleared")
}

func TestStartAndCloseWithoutTerminal(t *testing.T) {
	c := newTestController("http://localhost:0")

	// Under go test stdin is not a terminal, so the listener declines and
	// Close must return promptly.
	c.Start()
	c.Close()
	c.Close()
}
