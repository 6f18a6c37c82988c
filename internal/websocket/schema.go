package websocket

import (
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
	// Ref is echoed back on the reply so the client can match it.
	Ref string `json:"ref,omitempty"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action       Action  `json:"action"`
	Ref          string  `json:"ref,omitempty"`
	QuestionID   int64   `json:"questionId" binding:"required,min=1"`
	AnswerChoice *int    `json:"answerChoice" binding:"omitempty,min=0"`
	EssayAnswer  *string `json:"essayAnswer" binding:"omitempty,max=10000"`
}

// SaveRequest converts the message into a saveAnswer call for sessionID.
func (r AutosaveRequest) SaveRequest(sessionID int64) model.SaveAnswerRequest {
	return model.SaveAnswerRequest{
		SessionID:    sessionID,
		QuestionID:   r.QuestionID,
		AnswerChoice: r.AnswerChoice,
		EssayAnswer:  r.EssayAnswer,
	}
}

// SubmitRequest is sent by the client to flush its local answers and finish.
type SubmitRequest struct {
	Action  Action               `json:"action"`
	Ref     string               `json:"ref,omitempty"`
	Answers []model.AnswerUpsert `json:"answers" binding:"omitempty,max=500,dive"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventRejected  Event = "rejected"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// SavedResponse acknowledges an autosave.
type SavedResponse struct {
	Event      Event  `json:"event"`
	Ref        string `json:"ref,omitempty"`
	QuestionID int64  `json:"questionId"`
}

// RejectedResponse tells the client an answer arrived after the session closed.
type RejectedResponse struct {
	Event      Event  `json:"event"`
	Ref        string `json:"ref,omitempty"`
	QuestionID int64  `json:"questionId"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// SubmittedResponse acknowledges a submit.
type SubmittedResponse struct {
	Event  Event              `json:"event"`
	Ref    string             `json:"ref,omitempty"`
	Result model.SubmitResult `json:"result"`
}

// ErrorResponse reports a failed action.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongResponse answers a ping with the server clock so the client can
// correct its countdown drift.
type PongResponse struct {
	Event      Event     `json:"event"`
	Ref        string    `json:"ref,omitempty"`
	ServerTime time.Time `json:"serverTime"`
}
