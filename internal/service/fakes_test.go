package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/repository"
)

// memDB is an in-memory stand-in for the PostgreSQL repositories. Upsert and
// Finalize apply the same predicates the SQL statements do.
type memDB struct {
	mu        sync.Mutex
	nextID    int64
	packages  map[int64]*model.Package
	subtests  map[int64]*model.Subtest
	questions map[int64]*model.Question
	sessions  map[int64]*model.QuizSession
	answers   map[[2]int64]model.UserAnswer

	upsertErr error
	upserts   int
}

func newMemDB() *memDB {
	return &memDB{
		packages:  map[int64]*model.Package{},
		subtests:  map[int64]*model.Subtest{},
		questions: map[int64]*model.Question{},
		sessions:  map[int64]*model.QuizSession{},
		answers:   map[[2]int64]model.UserAnswer{},
	}
}

func (m *memDB) addSession(s model.QuizSession) *model.QuizSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.sessions[s.ID] = &s
	cp := s
	return &cp
}

// ─── SessionStore ─────────────────────────────────────────────

type memSessions struct{ db *memDB }

func (r memSessions) GetByID(_ context.Context, id int64) (*model.QuizSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r memSessions) GetByUserAndSubtest(_ context.Context, userID string, subtestID int64) (*model.QuizSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.sessions {
		if s.UserID == userID && s.SubtestID == subtestID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memSessions) GetOrCreate(_ context.Context, s *model.QuizSession) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.sessions {
		if existing.UserID == s.UserID && existing.PackageID == s.PackageID && existing.SubtestID == s.SubtestID {
			*s = *existing
			return false, nil
		}
	}
	r.db.nextID++
	s.ID = r.db.nextID
	cp := *s
	r.db.sessions[s.ID] = &cp
	return true, nil
}

func (r memSessions) MarkStarted(_ context.Context, id int64, at time.Time) (*model.QuizSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if s.StartTime == nil {
		s.StartTime = &at
	}
	cp := *s
	return &cp, nil
}

func (r memSessions) Finalize(_ context.Context, id int64, at time.Time) (time.Time, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sessions[id]
	if !ok {
		return time.Time{}, false, pgx.ErrNoRows
	}
	if s.EndTime != nil {
		return *s.EndTime, true, nil
	}
	if s.StartTime == nil {
		return time.Time{}, false, repository.ErrSessionNotStarted
	}
	s.EndTime = &at
	return at, false, nil
}

func (r memSessions) ListProgressByPackage(_ context.Context, packageID int64) ([]repository.SessionProgress, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []repository.SessionProgress
	for id := int64(1); id <= r.db.nextID; id++ {
		s, ok := r.db.sessions[id]
		if !ok || s.PackageID != packageID {
			continue
		}
		p := repository.SessionProgress{QuizSession: *s}
		for k := range r.db.answers {
			if k[0] == id {
				p.Answered++
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// ─── AnswerStore ──────────────────────────────────────────────

type memAnswers struct{ db *memDB }

func (r memAnswers) Upsert(_ context.Context, sessionID, questionID int64, v model.AnswerValue, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.upsertErr != nil {
		return r.db.upsertErr
	}
	s, ok := r.db.sessions[sessionID]
	if !ok || s.EndTime != nil || s.StartTime == nil {
		return repository.ErrSessionClosed
	}
	p := r.db.packages[s.PackageID]
	deadline := s.StartTime.Add(time.Duration(s.Duration) * time.Minute)
	if !at.Before(deadline) || !at.Before(p.TOEnd) {
		return repository.ErrSessionClosed
	}
	r.db.upserts++
	r.db.answers[[2]int64{sessionID, questionID}] = model.UserAnswer{
		QuizSessionID: sessionID,
		QuestionID:    questionID,
		AnswerChoice:  v.Choice,
		EssayAnswer:   v.Essay,
		UpdatedAt:     at,
	}
	return nil
}

func (r memAnswers) ListBySession(_ context.Context, sessionID int64) ([]model.UserAnswer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.UserAnswer{}
	for k, a := range r.db.answers {
		if k[0] == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── read-only stores ─────────────────────────────────────────

type memQuestions struct{ db *memDB }

func (r memQuestions) ListBySubtest(_ context.Context, subtestID int64) ([]model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Question
	for _, q := range r.db.questions {
		if q.SubtestID == subtestID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (r memQuestions) GetByID(_ context.Context, id int64) (*model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q, ok := r.db.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

type memPackages struct{ db *memDB }

func (r memPackages) GetByID(_ context.Context, id int64) (*model.Package, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.packages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (r memPackages) GetWindow(ctx context.Context, id int64) (*model.PackageWindow, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w := p.Window()
	return &w, nil
}

type memSubtests struct{ db *memDB }

func (r memSubtests) GetByID(_ context.Context, id int64) (*model.Subtest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.subtests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

// ─── EventPublisher ───────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) kinds() []model.SessionEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SessionEventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}
