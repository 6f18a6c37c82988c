package service

import (
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// Visibility is what a viewer may see and do for the questions of a session.
type Visibility struct {
	Selectable        bool
	RevealCorrectness bool
	RevealExplanation bool
}

// DecideVisibility gates selection and correctness per viewer.
// A user sees correctness once the personal deadline has passed, submitted or
// not. Privileged roles always see it.
func DecideVisibility(s *model.QuizSession, w SessionWindow, viewer model.Identity, now time.Time) Visibility {
	reveal := viewer.Privileged() || w.DeadlinePassed(now)
	return Visibility{
		Selectable:        CanWrite(s, w, viewer, now),
		RevealCorrectness: reveal,
		RevealExplanation: reveal,
	}
}

// BuildQuestionView renders q for a viewer with the given visibility. answer may be nil.
func BuildQuestionView(q *model.Question, answer *model.UserAnswer, vis Visibility) model.QuestionView {
	v := model.QuestionView{
		ID:                q.ID,
		Index:             q.Index,
		Content:           q.Content,
		ImageURL:          q.ImageURL,
		Type:              q.Type,
		Score:             q.Score,
		Selectable:        vis.Selectable,
		RevealCorrectness: vis.RevealCorrectness,
		Answers:           []model.AnswerOption{},
	}

	// The essay option is the reference answer, so it only travels when revealed.
	if q.Type == model.QuestionTypeMultipleChoice {
		v.Answers = append(v.Answers, q.Answers...)
	}

	if vis.RevealCorrectness {
		v.CorrectAnswerChoice = q.CorrectAnswerChoice
		if ref, ok := q.ReferenceAnswer(); ok {
			v.ReferenceAnswer = &ref
		}
		earned := ScoreQuestion(q, answer)
		v.EarnedScore = &earned
	}
	if vis.RevealExplanation {
		v.Explanation = q.Explanation
	}
	return v
}
