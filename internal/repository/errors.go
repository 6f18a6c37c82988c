package repository

import "errors"

var (
	// ErrSessionClosed is returned when a conditional answer write matched no
	// writable session row.
	ErrSessionClosed = errors.New("session is not accepting answers")
	// ErrSessionNotStarted is returned when finalizing a session without a start time.
	ErrSessionNotStarted = errors.New("session has not started")
)
