package service

import (
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// SessionState is derived on every access; only SUBMITTED is stored (end_time).
type SessionState string

const (
	StateNotStarted SessionState = "NOT_STARTED"
	StateInProgress SessionState = "IN_PROGRESS"
	StateExpired    SessionState = "EXPIRED"
	StateSubmitted  SessionState = "SUBMITTED"
)

// DeriveState computes the session state at now.
func DeriveState(s *model.QuizSession, w SessionWindow, now time.Time) SessionState {
	switch {
	case s == nil || s.StartTime == nil:
		return StateNotStarted
	case s.EndTime != nil:
		return StateSubmitted
	case w.Writable(now):
		return StateInProgress
	default:
		return StateExpired
	}
}

// AcceptsWrites reports whether answers may change in this state.
func (st SessionState) AcceptsWrites() bool {
	return st == StateInProgress
}

// Finalizable reports whether a submit call may close the session.
// SUBMITTED is included because finalize is idempotent.
func (st SessionState) Finalizable() bool {
	return st == StateInProgress || st == StateExpired || st == StateSubmitted
}

// CanWrite reports whether the viewer may select or change an answer.
func CanWrite(s *model.QuizSession, w SessionWindow, viewer model.Identity, now time.Time) bool {
	return viewer.Owns(s) && DeriveState(s, w, now).AcceptsWrites()
}

// CanRead reports whether the viewer may load the session and its questions.
func CanRead(s *model.QuizSession, viewer model.Identity) bool {
	return viewer.Owns(s) || viewer.Privileged()
}

// ShouldRedirect reports whether a user must be sent away from the session screen.
func ShouldRedirect(w SessionWindow, viewer model.Identity, now time.Time) bool {
	return !viewer.Privileged() && w.ClosedByPackage(now)
}
