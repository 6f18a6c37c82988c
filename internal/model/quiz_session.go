package model

import "time"

// QuizSession is one user's attempt at one subtest within one package.
type QuizSession struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"userId"`
	PackageID int64      `json:"packageId"`
	SubtestID int64      `json:"subtestId"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	// Duration is the subtest duration in minutes, fixed when the session is created.
	Duration int `json:"duration"`
}

// SessionDetails is the getSessionDetails response.
type SessionDetails struct {
	QuizSession
	Package          PackageSummary `json:"package"`
	Subtest          SubtestSummary `json:"subtest"`
	UserAnswers      []UserAnswer   `json:"userAnswers"`
	State            string         `json:"state"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	RemainingSeconds int64          `json:"remainingSeconds"`
	Writable         bool           `json:"writable"`
	ClosedByPackage  bool           `json:"closedByPackage"`
	// Redirect tells the client to leave the session screen.
	Redirect bool `json:"redirect"`
}

// PackageSummary is the package part of SessionDetails.
type PackageSummary struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	TOStart time.Time `json:"TOstart"`
	TOEnd   time.Time `json:"TOend"`
}

// SubtestSummary is the subtest part of SessionDetails.
type SubtestSummary struct {
	ID    int64       `json:"id"`
	Type  SubtestType `json:"type"`
	Label string      `json:"label"`
}

// SubmitRequest is the submitQuiz payload. Answers are the locally held values
// to flush before the session closes.
type SubmitRequest struct {
	SessionID int64          `json:"sessionId"`
	Answers   []AnswerUpsert `json:"answers" binding:"omitempty,max=500,dive"`
}

// SubmitResult is the submitQuiz acknowledgement.
type SubmitResult struct {
	SessionID        int64     `json:"sessionId"`
	EndTime          time.Time `json:"endTime"`
	AlreadySubmitted bool      `json:"alreadySubmitted"`
	Flushed          int       `json:"flushed"`
	Rejected         int       `json:"rejected"`
}

// SessionResult is the per-question score breakdown of a session.
type SessionResult struct {
	SessionID  int64        `json:"sessionId"`
	TotalScore int          `json:"totalScore"`
	MaxScore   int          `json:"maxScore"`
	Items      []ResultItem `json:"items"`
}

// ResultItem is the score of one question.
type ResultItem struct {
	QuestionID int64 `json:"questionId"`
	Index      int   `json:"index"`
	Answered   bool  `json:"answered"`
	Earned     int   `json:"earned"`
	Weight     int   `json:"weight"`
}
