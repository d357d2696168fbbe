// Package cancel owns the cooperative stop signal shared between the
// orchestrator, the operator's abort key and the in-flight network attempt.
package cancel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docfold/pagescribe/internal/observability"
)

const (
	// escapeKey is the operator abort gesture.
	escapeKey = 0x1b

	// listenPollInterval bounds how long the listener waits on stdin before
	// re-checking its own exit signal.
	listenPollInterval = 200 * time.Millisecond

	// cancelRequestTimeout bounds the best-effort server-side cancel call.
	cancelRequestTimeout = 5 * time.Second
)

// InterruptFunc tears down an in-flight attempt's transport, causing its
// blocking read to fail.
type InterruptFunc func()

// Controller owns the one-shot stop flag and the registration of the
// currently interruptible attempt. The registration is the only state shared
// between the listener goroutine and the processing goroutine; it is guarded
// by a single mutex.
type Controller struct {
	baseURL    string
	apiKey     string
	log        *observability.Logger
	httpClient *http.Client

	stopped atomic.Bool

	mu           sync.Mutex
	attemptSeq   uint64
	interrupt    InterruptFunc
	generationID string

	listenerExit chan struct{}
	listenerDone chan struct{}
	startOnce    sync.Once
	closeOnce    sync.Once
	stopOnce     sync.Once
}

// NewController creates a controller targeting the given model server for
// server-side generation cancels.
func NewController(baseURL, apiKey string, log *observability.Logger) *Controller {
	return &Controller{
		baseURL:      baseURL,
		apiKey:       apiKey,
		log:          log.WithComponent("cancel"),
		httpClient:   &http.Client{Timeout: cancelRequestTimeout},
		listenerExit: make(chan struct{}),
		listenerDone: make(chan struct{}),
	}
}

// Start begins listening for the Escape key on stdin. The listener runs in
// its own goroutine and polls on a bounded interval so it stays responsive
// while the orchestrator blocks on network I/O. When stdin is not a terminal
// the listener declines to start and the run relies on signal handling.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		if !startKeyListener(c) {
			close(c.listenerDone)
			c.log.Debug().Msg("stdin is not a terminal, abort key disabled")
		}
	})
}

// Close signals the listener to exit on its own and restores any terminal
// mode changes. Safe to call even if the listener already exited.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.listenerExit) })
	select {
	case <-c.listenerDone:
	case <-time.After(time.Second):
	}
}

// RequestStop sets the shared stop flag and interrupts the current attempt.
// Idempotent; once requested, cancellation cannot be un-requested.
func (c *Controller) RequestStop() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		c.log.Info().Msg("stop requested")
		c.InterruptCurrent()
	})
}

// Stopped reports whether a stop has been requested.
func (c *Controller) Stopped() bool {
	return c.stopped.Load()
}

// RegisterAttempt makes the given teardown function the target of
// InterruptCurrent and returns a token identifying the registration. The
// generation identifier is reset; it becomes known only once the server's
// first response chunk arrives.
//
// A timed-out attempt's goroutine can outlive its registration and clear or
// publish after the next attempt has registered; the token makes those late
// calls no-ops so the controller always holds the right target.
func (c *Controller) RegisterAttempt(interrupt InterruptFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attemptSeq++
	c.interrupt = interrupt
	c.generationID = ""
	return c.attemptSeq
}

// SetGenerationID publishes the server-assigned identifier of the attempt
// registered under token so a concurrent interrupt can target the right
// remote generation. Ignored when the registration has been superseded.
func (c *Controller) SetGenerationID(token uint64, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.attemptSeq {
		return
	}
	c.generationID = id
}

// ClearAttempt removes the registration identified by token. Ignored when a
// newer attempt has already registered.
func (c *Controller) ClearAttempt(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.attemptSeq {
		return
	}
	c.interrupt = nil
	c.generationID = ""
}

// InterruptCurrent forcibly closes the registered attempt's transport and
// best-effort notifies the server's cancel endpoint. Cancellation never
// fails: errors from the remote cancel are swallowed.
func (c *Controller) InterruptCurrent() {
	c.mu.Lock()
	interrupt := c.interrupt
	generationID := c.generationID
	c.mu.Unlock()

	if interrupt != nil {
		interrupt()
	}

	if generationID != "" {
		c.cancelGeneration(generationID)
	}
}

// cancelGeneration asks the server to stop the given generation. Fire and
// forget: no retry, errors ignored.
func (c *Controller) cancelGeneration(id string) {
	url := fmt.Sprintf("%s/chat/completions/%s/cancel", c.baseURL, id)

	ctx, cancelFn := context.WithTimeout(context.Background(), cancelRequestTimeout)
	defer cancelFn()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("generation_id", id).Msg("server-side cancel failed")
		return
	}
	resp.Body.Close()
	c.log.Debug().Str("generation_id", id).Msg("server-side cancel sent")
}
