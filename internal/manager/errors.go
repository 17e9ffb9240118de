package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation needs a connection and
	// the single handshake attempt did not produce one.
	ErrNotConnected = errors.New("not connected")

	// ErrLoginTimeout is returned when the login signal never arrived.
	ErrLoginTimeout = errors.New("login did not complete in time")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("manager closed")

	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
)

// LoginError reports a login that Slack answered with ok=false.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	if e.Reason == "" {
		return "login failed"
	}
	return fmt.Sprintf("login failed: %s", e.Reason)
}
