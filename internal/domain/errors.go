package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeTimeout     ErrorType = "timeout"     // attempt exceeded its wall-clock ceiling
	ErrorTypeInterrupted ErrorType = "interrupted" // transport torn down by operator or watchdog
	ErrorTypeTransport   ErrorType = "transport"   // any other network or protocol failure
	ErrorTypeRender      ErrorType = "render"
	ErrorTypeCheckpoint  ErrorType = "checkpoint"
	ErrorTypeConfig      ErrorType = "config"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func TimeoutError(message string, err error) *DomainError {
	return NewError(ErrorTypeTimeout, message, err)
}

func InterruptedError(message string, err error) *DomainError {
	return NewError(ErrorTypeInterrupted, message, err)
}

func TransportError(message string, err error) *DomainError {
	return NewError(ErrorTypeTransport, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func CheckpointError(message string, err error) *DomainError {
	return NewError(ErrorTypeCheckpoint, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// isType reports whether err is a DomainError of the given type.
func isType(err error, t ErrorType) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Type == t
}

// IsTimeout reports whether the attempt failed by exceeding its deadline.
func IsTimeout(err error) bool { return isType(err, ErrorTypeTimeout) }

// IsInterrupted reports whether the attempt was torn down deliberately.
// Callers must treat this as "stop now", never as a page failure.
func IsInterrupted(err error) bool { return isType(err, ErrorTypeInterrupted) }

// IsTransport reports whether the attempt failed on the wire.
func IsTransport(err error) bool { return isType(err, ErrorTypeTransport) }
