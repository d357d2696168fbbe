package llm

import (
	"fmt"
	"time"

	"github.com/docfold/pagescribe/internal/domain"
)

// interrupter tears down the currently registered attempt.
type interrupter interface {
	InterruptCurrent()
}

// runWithDeadline executes work in its own goroutine and waits for its
// result or for the wall-clock deadline, whichever comes first. Servers can
// hang with an open connection and no events, so the ceiling is enforced
// locally. On expiry the in-flight attempt is interrupted through the
// controller before the timeout is reported; the abandoned goroutine then
// fails its blocking read and drains into the buffered channel.
func runWithDeadline(deadline time.Duration, ctrl interrupter, work func() (string, error)) (string, error) {
	type result struct {
		text string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		text, err := work()
		done <- result{text: text, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		ctrl.InterruptCurrent()
		return "", domain.TimeoutError(fmt.Sprintf("attempt exceeded %s without completing", deadline), nil)
	}
}
