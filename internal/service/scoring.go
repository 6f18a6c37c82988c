package service

import (
	"strings"

	"github.com/stemsi/tryout-backend/internal/model"
)

// ScoreQuestion returns the question weight when the stored answer is correct,
// else 0. Essay answers match after trimming outer whitespace only; case and
// inner whitespace must be identical. answer may be nil (unanswered).
func ScoreQuestion(q *model.Question, answer *model.UserAnswer) int {
	if q == nil || answer == nil {
		return 0
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if q.CorrectAnswerChoice == nil || answer.AnswerChoice == nil {
			return 0
		}
		if *answer.AnswerChoice == *q.CorrectAnswerChoice {
			return q.Score
		}
	case model.QuestionTypeEssay:
		ref, ok := q.ReferenceAnswer()
		if !ok || answer.EssayAnswer == nil {
			return 0
		}
		if strings.TrimSpace(*answer.EssayAnswer) == strings.TrimSpace(ref) {
			return q.Score
		}
	}
	return 0
}

// ScoreSession scores every question against the stored answers.
func ScoreSession(sessionID int64, questions []model.Question, answers []model.UserAnswer) model.SessionResult {
	byQuestion := indexAnswers(answers)

	result := model.SessionResult{
		SessionID: sessionID,
		Items:     make([]model.ResultItem, 0, len(questions)),
	}
	for i := range questions {
		q := &questions[i]
		a := byQuestion[q.ID]
		earned := ScoreQuestion(q, a)
		result.Items = append(result.Items, model.ResultItem{
			QuestionID: q.ID,
			Index:      q.Index,
			Answered:   a != nil,
			Earned:     earned,
			Weight:     q.Score,
		})
		result.TotalScore += earned
		result.MaxScore += q.Score
	}
	return result
}

func indexAnswers(answers []model.UserAnswer) map[int64]*model.UserAnswer {
	m := make(map[int64]*model.UserAnswer, len(answers))
	for i := range answers {
		m[answers[i].QuestionID] = &answers[i]
	}
	return m
}
