package model

// QuestionType enumerates supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "mulChoice"
	QuestionTypeEssay          QuestionType = "essay"
)

// AnswerOption is one selectable option of a question. For essay questions the
// single option holds the canonical reference answer.
type AnswerOption struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Question represents a single subtest question.
type Question struct {
	ID                  int64          `json:"id"`
	SubtestID           int64          `json:"subtestId"`
	Index               int            `json:"index"`
	Content             string         `json:"content"`
	ImageURL            *string        `json:"imageUrl,omitempty"`
	Type                QuestionType   `json:"type"`
	Score               int            `json:"score"`
	Explanation         *string        `json:"explanation,omitempty"`
	CorrectAnswerChoice *int           `json:"correctAnswerChoice,omitempty"`
	Answers             []AnswerOption `json:"answers"`
}

// HasOption reports whether idx references an existing answer option.
func (q *Question) HasOption(idx int) bool {
	for _, a := range q.Answers {
		if a.Index == idx {
			return true
		}
	}
	return false
}

// ReferenceAnswer returns the canonical answer of an essay question.
func (q *Question) ReferenceAnswer() (string, bool) {
	if q.Type != QuestionTypeEssay || len(q.Answers) == 0 {
		return "", false
	}
	return q.Answers[0].Content, true
}

// QuestionView is a question as rendered for one viewer. Gated fields are nil
// unless the viewer may see them.
type QuestionView struct {
	ID                  int64          `json:"id"`
	Index               int            `json:"index"`
	Content             string         `json:"content"`
	ImageURL            *string        `json:"imageUrl,omitempty"`
	Type                QuestionType   `json:"type"`
	Score               int            `json:"score"`
	Answers             []AnswerOption `json:"answers"`
	Selectable          bool           `json:"selectable"`
	RevealCorrectness   bool           `json:"revealCorrectness"`
	CorrectAnswerChoice *int           `json:"correctAnswerChoice,omitempty"`
	ReferenceAnswer     *string        `json:"referenceAnswer,omitempty"`
	Explanation         *string        `json:"explanation,omitempty"`
	EarnedScore         *int           `json:"earnedScore,omitempty"`
}
