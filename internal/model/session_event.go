package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventKind enumerates audit events emitted by the session engine.
type SessionEventKind string

const (
	SessionEventStarted        SessionEventKind = "session_started"
	SessionEventAnswerSaved    SessionEventKind = "answer_saved"
	SessionEventAnswerRejected SessionEventKind = "answer_rejected"
	SessionEventSubmitted      SessionEventKind = "session_submitted"
)

// SessionEvent is published to monitors and persisted for audit.
type SessionEvent struct {
	ID         uuid.UUID        `json:"id"`
	Kind       SessionEventKind `json:"type"`
	SessionID  int64            `json:"sessionId"`
	UserID     string           `json:"userId"`
	PackageID  int64            `json:"packageId"`
	SubtestID  int64            `json:"subtestId"`
	QuestionID *int64           `json:"questionId,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}
