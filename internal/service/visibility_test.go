package service

import (
	"testing"
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

func TestDecideVisibility(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	pkg := model.PackageWindow{TOStart: start.Add(-time.Hour), TOEnd: start.Add(3 * time.Hour)}
	owner := model.Identity{UserID: "u1", Role: model.RoleUser}

	tests := []struct {
		name       string
		viewer     model.Identity
		endTime    *time.Time
		now        time.Time
		selectable bool
		reveal     bool
	}{
		{name: "user in progress", viewer: owner, now: start.Add(5 * time.Minute), selectable: true, reveal: false},
		{name: "user submitted before deadline", viewer: owner, endTime: timePtr(start.Add(6 * time.Minute)), now: start.Add(10 * time.Minute), selectable: false, reveal: false},
		{name: "user after deadline", viewer: owner, now: start.Add(31 * time.Minute), selectable: false, reveal: true},
		{name: "user submitted after deadline", viewer: owner, endTime: timePtr(start.Add(6 * time.Minute)), now: start.Add(40 * time.Minute), selectable: false, reveal: true},
		{name: "teacher in progress", viewer: model.Identity{UserID: "t1", Role: model.RoleTeacher}, now: start.Add(5 * time.Minute), selectable: false, reveal: true},
		{name: "admin owner in progress", viewer: model.Identity{UserID: "u1", Role: model.RoleAdmin}, now: start.Add(5 * time.Minute), selectable: true, reveal: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess := &model.QuizSession{UserID: "u1", StartTime: &start, EndTime: tc.endTime, Duration: 30}
			got := DecideVisibility(sess, NewSessionWindow(sess, pkg), tc.viewer, tc.now)
			if got.Selectable != tc.selectable {
				t.Errorf("Selectable = %v, want %v", got.Selectable, tc.selectable)
			}
			if got.RevealCorrectness != tc.reveal || got.RevealExplanation != tc.reveal {
				t.Errorf("reveal = %v/%v, want %v", got.RevealCorrectness, got.RevealExplanation, tc.reveal)
			}
		})
	}
}

func TestBuildQuestionViewHidesKeyUntilRevealed(t *testing.T) {
	q := choiceQuestion(1, 2, 4)
	q.Explanation = strPtr("because")
	answer := &model.UserAnswer{QuestionID: 1, AnswerChoice: intPtr(2)}

	hidden := BuildQuestionView(&q, answer, Visibility{Selectable: true})
	if hidden.CorrectAnswerChoice != nil || hidden.Explanation != nil || hidden.EarnedScore != nil {
		t.Fatalf("expected gated fields to be nil, got %+v", hidden)
	}
	if len(hidden.Answers) != 4 {
		t.Fatalf("expected 4 options, got %d", len(hidden.Answers))
	}

	shown := BuildQuestionView(&q, answer, Visibility{RevealCorrectness: true, RevealExplanation: true})
	if shown.CorrectAnswerChoice == nil || *shown.CorrectAnswerChoice != 2 {
		t.Fatalf("expected correct choice 2, got %v", shown.CorrectAnswerChoice)
	}
	if shown.Explanation == nil || *shown.Explanation != "because" {
		t.Fatalf("expected explanation, got %v", shown.Explanation)
	}
	if shown.EarnedScore == nil || *shown.EarnedScore != 4 {
		t.Fatalf("expected earned 4, got %v", shown.EarnedScore)
	}
}

func TestBuildQuestionViewEssayReference(t *testing.T) {
	q := essayQuestion(5, "Paris", 2)

	hidden := BuildQuestionView(&q, nil, Visibility{})
	if len(hidden.Answers) != 0 || hidden.ReferenceAnswer != nil {
		t.Fatalf("essay reference must not leak: %+v", hidden)
	}

	shown := BuildQuestionView(&q, nil, Visibility{RevealCorrectness: true, RevealExplanation: true})
	if shown.ReferenceAnswer == nil || *shown.ReferenceAnswer != "Paris" {
		t.Fatalf("expected reference answer, got %v", shown.ReferenceAnswer)
	}
	if shown.EarnedScore == nil || *shown.EarnedScore != 0 {
		t.Fatalf("expected earned 0 for unanswered, got %v", shown.EarnedScore)
	}
}
