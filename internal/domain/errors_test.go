package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorMessage(t *testing.T) {
	err := TransportError("send request", errors.New("connection refused"))
	assert.Equal(t, "[transport] send request: connection refused", err.Error())

	bare := TimeoutError("attempt exceeded 5m0s", nil)
	assert.Equal(t, "[timeout] attempt exceeded 5m0s", bare.Error())
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := CheckpointError("write page 3", inner)
	assert.ErrorIs(t, err, inner)
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsTimeout(TimeoutError("t", nil)))
	assert.True(t, IsInterrupted(InterruptedError("i", nil)))
	assert.True(t, IsTransport(TransportError("x", nil)))

	assert.False(t, IsTimeout(TransportError("x", nil)))
	assert.False(t, IsInterrupted(TimeoutError("t", nil)))
	assert.False(t, IsTransport(nil))
	assert.False(t, IsTimeout(errors.New("plain")))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("job failed: %w", InterruptedError("stopped", nil))
	assert.True(t, IsInterrupted(wrapped))
}
