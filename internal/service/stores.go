package service

import (
	"context"
	"time"

	"github.com/stemsi/tryout-backend/internal/model"
)

// SessionStore persists quiz sessions. Implemented by repository.QuizSessionRepository.
type SessionStore interface {
	GetByID(ctx context.Context, id int64) (*model.QuizSession, error)
	GetByUserAndSubtest(ctx context.Context, userID string, subtestID int64) (*model.QuizSession, error)
	GetOrCreate(ctx context.Context, s *model.QuizSession) (bool, error)
	MarkStarted(ctx context.Context, id int64, at time.Time) (*model.QuizSession, error)
	Finalize(ctx context.Context, id int64, at time.Time) (time.Time, bool, error)
}

// AnswerStore persists answers. Implemented by repository.UserAnswerRepository.
type AnswerStore interface {
	Upsert(ctx context.Context, sessionID, questionID int64, v model.AnswerValue, at time.Time) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.UserAnswer, error)
}

// QuestionStore reads questions. Implemented by repository.QuestionRepository.
type QuestionStore interface {
	ListBySubtest(ctx context.Context, subtestID int64) ([]model.Question, error)
	GetByID(ctx context.Context, id int64) (*model.Question, error)
}

// PackageStore reads packages. Implemented by repository.PackageRepository.
type PackageStore interface {
	GetByID(ctx context.Context, id int64) (*model.Package, error)
	GetWindow(ctx context.Context, id int64) (*model.PackageWindow, error)
}

// SubtestStore reads subtests. Implemented by repository.SubtestRepository.
type SubtestStore interface {
	GetByID(ctx context.Context, id int64) (*model.Subtest, error)
}

// WindowSource resolves the package window for reads that tolerate a stale
// value: details, question reveal and results.
type WindowSource interface {
	Window(ctx context.Context, packageID int64) (model.PackageWindow, error)
}

// EventPublisher fans session events out to monitors and the audit queue.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.SessionEvent)
}

// storeWindowSource reads the window straight from PostgreSQL.
type storeWindowSource struct {
	packages PackageStore
}

func (s storeWindowSource) Window(ctx context.Context, packageID int64) (model.PackageWindow, error) {
	w, err := s.packages.GetWindow(ctx, packageID)
	if err != nil {
		return model.PackageWindow{}, err
	}
	return *w, nil
}
