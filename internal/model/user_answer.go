package model

import (
	"errors"
	"time"
)

// UserAnswer is the stored answer for one (session, question) pair.
type UserAnswer struct {
	QuizSessionID int64     `json:"quizSessionId"`
	QuestionID    int64     `json:"questionId"`
	AnswerChoice  *int      `json:"answerChoice"`
	EssayAnswer   *string   `json:"essayAnswer"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Value returns the answer as an AnswerValue.
func (a *UserAnswer) Value() AnswerValue {
	return AnswerValue{Choice: a.AnswerChoice, Essay: a.EssayAnswer}
}

// AnswerValue is either a choice index or free text, never both.
type AnswerValue struct {
	Choice *int
	Essay  *string
}

// ChoiceValue builds a multiple-choice value.
func ChoiceValue(idx int) AnswerValue { return AnswerValue{Choice: &idx} }

// EssayValue builds a free-text value.
func EssayValue(text string) AnswerValue { return AnswerValue{Essay: &text} }

var errAnswerShape = errors.New("exactly one of answerChoice and essayAnswer must be set")

// Validate checks the mutual exclusion of the two fields.
func (v AnswerValue) Validate() error {
	if (v.Choice == nil) == (v.Essay == nil) {
		return errAnswerShape
	}
	return nil
}

// Equal reports whether both values hold the same answer.
func (v AnswerValue) Equal(o AnswerValue) bool {
	switch {
	case v.Choice != nil && o.Choice != nil:
		return *v.Choice == *o.Choice
	case v.Essay != nil && o.Essay != nil:
		return *v.Essay == *o.Essay
	}
	return v.Choice == nil && o.Choice == nil && v.Essay == nil && o.Essay == nil
}

// AnswerUpsert is one answer carried by a save or submit request.
type AnswerUpsert struct {
	QuestionID   int64   `json:"questionId" binding:"required,min=1"`
	AnswerChoice *int    `json:"answerChoice" binding:"omitempty,min=0"`
	EssayAnswer  *string `json:"essayAnswer" binding:"omitempty,max=10000"`
}

// Value returns the carried answer.
func (u AnswerUpsert) Value() AnswerValue {
	return AnswerValue{Choice: u.AnswerChoice, Essay: u.EssayAnswer}
}

// SaveAnswerRequest is the saveAnswer payload. PackageID and UserID are
// accepted for wire compatibility; stored values come from the session row.
type SaveAnswerRequest struct {
	SessionID    int64   `json:"quizSessionId"`
	QuestionID   int64   `json:"questionId" binding:"required,min=1"`
	PackageID    int64   `json:"packageId"`
	UserID       string  `json:"userId"`
	AnswerChoice *int    `json:"answerChoice" binding:"omitempty,min=0"`
	EssayAnswer  *string `json:"essayAnswer" binding:"omitempty,max=10000"`
}

// Value returns the carried answer.
func (r SaveAnswerRequest) Value() AnswerValue {
	return AnswerValue{Choice: r.AnswerChoice, Essay: r.EssayAnswer}
}
