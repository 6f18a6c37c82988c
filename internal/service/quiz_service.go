package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

const defaultFlushConcurrency = 8

// QuizService runs the exam-session engine: session start, answer upserts,
// submission and the visibility gate.
type QuizService struct {
	sessions  SessionStore
	answers   AnswerStore
	questions QuestionStore
	packages  PackageStore
	subtests  SubtestStore
	windows   WindowSource
	stored    WindowSource
	events    EventPublisher

	flushConcurrency int
	now              func() time.Time
	log              zerolog.Logger
}

// QuizServiceDeps groups the collaborators of QuizService. Windows and Events
// are optional.
type QuizServiceDeps struct {
	Sessions  SessionStore
	Answers   AnswerStore
	Questions QuestionStore
	Packages  PackageStore
	Subtests  SubtestStore
	Windows   WindowSource
	Events    EventPublisher
}

// NewQuizService creates a new QuizService.
func NewQuizService(deps QuizServiceDeps, flushConcurrency int, log zerolog.Logger) *QuizService {
	if flushConcurrency < 1 {
		flushConcurrency = defaultFlushConcurrency
	}
	windows := deps.Windows
	if windows == nil {
		windows = storeWindowSource{packages: deps.Packages}
	}
	return &QuizService{
		sessions:         deps.Sessions,
		answers:          deps.Answers,
		questions:        deps.Questions,
		packages:         deps.Packages,
		subtests:         deps.Subtests,
		windows:          windows,
		stored:           storeWindowSource{packages: deps.Packages},
		events:           deps.Events,
		flushConcurrency: flushConcurrency,
		now:              time.Now,
		log:              log.With().Str("component", "quiz_service").Logger(),
	}
}

// SetClock replaces the wall clock. Used by tests.
func (s *QuizService) SetClock(now func() time.Time) {
	s.now = now
}

// StartSession returns the caller's session on a subtest, creating it with
// start_time = now on first access (NOT_STARTED -> IN_PROGRESS).
func (s *QuizService) StartSession(ctx context.Context, viewer model.Identity, packageID, subtestID int64) (*model.SessionDetails, error) {
	now := s.now()

	subtest, err := s.subtests.GetByID(ctx, subtestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubtestNotFound
		}
		return nil, fmt.Errorf("get subtest: %w", err)
	}
	if subtest.PackageID != packageID {
		return nil, ErrSubtestNotFound
	}

	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubtestNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}

	sess := &model.QuizSession{
		UserID:    viewer.UserID,
		PackageID: packageID,
		SubtestID: subtestID,
		StartTime: &now,
		Duration:  subtest.Duration,
	}

	// Users cannot open a session outside the package window. An existing
	// session is still returned so a reload after close can be redirected.
	window := NewSessionWindow(nil, pkg.Window())
	if !viewer.Privileged() && !window.PackageOpen(now) {
		existing, err := s.sessions.GetByUserAndSubtest(ctx, viewer.UserID, subtestID)
		if err == nil && existing.StartTime != nil {
			return s.buildDetails(ctx, viewer, existing, pkg, subtest, now)
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session: %w", err)
		}
		if now.Before(pkg.TOStart) {
			return nil, ErrPackageNotOpen
		}
		return nil, ErrPackageClosed
	}

	created, err := s.sessions.GetOrCreate(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if !created && sess.StartTime == nil {
		if sess, err = s.sessions.MarkStarted(ctx, sess.ID, now); err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		created = true
	}

	if created {
		s.log.Info().
			Int64("session_id", sess.ID).
			Str("user_id", sess.UserID).
			Int64("subtest_id", subtestID).
			Int("duration", sess.Duration).
			Msg("Session started")
		s.publish(ctx, model.SessionEventStarted, sess, nil, now)
	}

	return s.buildDetails(ctx, viewer, sess, pkg, subtest, now)
}

// GetSessionDetails loads a session for its owner or a privileged viewer. A
// pre-provisioned session without start_time is started by its owner's first access.
func (s *QuizService) GetSessionDetails(ctx context.Context, viewer model.Identity, sessionID int64) (*model.SessionDetails, error) {
	now := s.now()

	sess, err := s.readableSession(ctx, viewer, sessionID)
	if err != nil {
		return nil, err
	}

	pkg, err := s.packages.GetByID(ctx, sess.PackageID)
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	subtest, err := s.subtests.GetByID(ctx, sess.SubtestID)
	if err != nil {
		return nil, fmt.Errorf("get subtest: %w", err)
	}

	if sess.StartTime == nil && viewer.Owns(sess) {
		if viewer.Privileged() || NewSessionWindow(nil, pkg.Window()).PackageOpen(now) {
			if sess, err = s.sessions.MarkStarted(ctx, sess.ID, now); err != nil {
				return nil, fmt.Errorf("start session: %w", err)
			}
			s.publish(ctx, model.SessionEventStarted, sess, nil, now)
		}
	}

	return s.buildDetails(ctx, viewer, sess, pkg, subtest, now)
}

func (s *QuizService) buildDetails(ctx context.Context, viewer model.Identity, sess *model.QuizSession, pkg *model.Package, subtest *model.Subtest, now time.Time) (*model.SessionDetails, error) {
	answers, err := s.answers.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	window := NewSessionWindow(sess, pkg.Window())
	details := &model.SessionDetails{
		QuizSession: *sess,
		Package: model.PackageSummary{
			ID:      pkg.ID,
			Name:    pkg.Name,
			TOStart: pkg.TOStart,
			TOEnd:   pkg.TOEnd,
		},
		Subtest: model.SubtestSummary{
			ID:    subtest.ID,
			Type:  subtest.Type,
			Label: subtest.Type.Label(),
		},
		UserAnswers:      answers,
		State:            string(DeriveState(sess, window, now)),
		RemainingSeconds: int64(window.Remaining(now) / time.Second),
		Writable:         CanWrite(sess, window, viewer, now),
		ClosedByPackage:  window.ClosedByPackage(now),
		Redirect:         ShouldRedirect(window, viewer, now),
	}
	if deadline, ok := window.Deadline(); ok {
		details.Deadline = &deadline
	}
	return details, nil
}

// GetQuestionsBySubtest returns the ordered questions of a subtest rendered for
// the viewer. A user must hold a session on the subtest; privileged roles see
// everything, gated against their own session when they have one.
func (s *QuizService) GetQuestionsBySubtest(ctx context.Context, viewer model.Identity, subtestID int64) ([]model.QuestionView, error) {
	now := s.now()

	subtest, err := s.subtests.GetByID(ctx, subtestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubtestNotFound
		}
		return nil, fmt.Errorf("get subtest: %w", err)
	}

	sess, err := s.sessions.GetByUserAndSubtest(ctx, viewer.UserID, subtestID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session: %w", err)
		}
		if !viewer.Privileged() {
			return nil, ErrSessionNotFound
		}
		sess = nil
	}

	var vis Visibility
	var answers []model.UserAnswer
	if sess != nil {
		window, err := s.windows.Window(ctx, subtest.PackageID)
		if err != nil {
			return nil, fmt.Errorf("get package window: %w", err)
		}
		vis = DecideVisibility(sess, NewSessionWindow(sess, window), viewer, now)
		if answers, err = s.answers.ListBySession(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("list answers: %w", err)
		}
	} else {
		vis = Visibility{RevealCorrectness: true, RevealExplanation: true}
	}

	questions, err := s.questions.ListBySubtest(ctx, subtestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	byQuestion := indexAnswers(answers)
	views := make([]model.QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, BuildQuestionView(&questions[i], byQuestion[questions[i].ID], vis))
	}
	return views, nil
}

// SaveAnswer upserts one answer. Acceptance is decided from stored timestamps
// only; the request never carries time.
func (s *QuizService) SaveAnswer(ctx context.Context, viewer model.Identity, req model.SaveAnswerRequest) error {
	now := s.now()

	sess, err := s.ownedSession(ctx, viewer, req.SessionID)
	if err != nil {
		return err
	}

	q, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}
	if q.SubtestID != sess.SubtestID {
		return ErrQuestionNotFound
	}

	// Acceptance reads the stored window. A cached TOend may lag behind an
	// extended package close.
	window, err := s.stored.Window(ctx, sess.PackageID)
	if err != nil {
		return fmt.Errorf("get package window: %w", err)
	}

	return s.writeAnswer(ctx, viewer, sess, NewSessionWindow(sess, window), q, req.Value(), now)
}

func (s *QuizService) writeAnswer(ctx context.Context, viewer model.Identity, sess *model.QuizSession, window SessionWindow, q *model.Question, v model.AnswerValue, now time.Time) error {
	if err := checkAnswerShape(q, v); err != nil {
		return err
	}

	qid := q.ID
	if !CanWrite(sess, window, viewer, now) {
		s.publish(ctx, model.SessionEventAnswerRejected, sess, &qid, now)
		return ErrSessionNotWritable
	}

	if err := s.answers.Upsert(ctx, sess.ID, q.ID, v, now); err != nil {
		if errors.Is(err, repository.ErrSessionClosed) {
			s.publish(ctx, model.SessionEventAnswerRejected, sess, &qid, now)
			return ErrSessionNotWritable
		}
		return fmt.Errorf("upsert answer: %w", err)
	}

	s.publish(ctx, model.SessionEventAnswerSaved, sess, &qid, now)
	return nil
}

// checkAnswerShape validates the value against the question kind at write time.
func checkAnswerShape(q *model.Question, v model.AnswerValue) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if v.Choice == nil {
			return fmt.Errorf("%w: question %d expects answerChoice", ErrInvalidAnswer, q.ID)
		}
		if !q.HasOption(*v.Choice) {
			return fmt.Errorf("%w: option %d does not exist", ErrInvalidAnswer, *v.Choice)
		}
	case model.QuestionTypeEssay:
		if v.Essay == nil {
			return fmt.Errorf("%w: question %d expects essayAnswer", ErrInvalidAnswer, q.ID)
		}
		if !utf8.ValidString(*v.Essay) {
			return fmt.Errorf("%w: essayAnswer is not valid UTF-8", ErrInvalidAnswer)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswer, q.Type)
	}
	return nil
}

// Submit flushes the supplied answers, waits for every flush to settle, then
// closes the session. Flushes rejected for timing are counted, not fatal, so an
// expired session can still be closed. Any other flush failure fails the call
// before close is attempted. Closing an already submitted session is a no-op.
func (s *QuizService) Submit(ctx context.Context, viewer model.Identity, req model.SubmitRequest) (*model.SubmitResult, error) {
	now := s.now()

	sess, err := s.ownedSession(ctx, viewer, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.StartTime == nil {
		return nil, ErrSessionNotStarted
	}

	window, err := s.stored.Window(ctx, sess.PackageID)
	if err != nil {
		return nil, fmt.Errorf("get package window: %w", err)
	}
	sw := NewSessionWindow(sess, window)

	var flushed, rejected atomic.Int32
	if len(req.Answers) > 0 {
		questions, err := s.questions.ListBySubtest(ctx, sess.SubtestID)
		if err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
		byID := make(map[int64]*model.Question, len(questions))
		for i := range questions {
			byID[questions[i].ID] = &questions[i]
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.flushConcurrency)
		for _, a := range req.Answers {
			g.Go(func() error {
				q, ok := byID[a.QuestionID]
				if !ok {
					return fmt.Errorf("flush question %d: %w", a.QuestionID, ErrQuestionNotFound)
				}
				err := s.writeAnswer(gctx, viewer, sess, sw, q, a.Value(), now)
				switch {
				case errors.Is(err, ErrSessionNotWritable):
					rejected.Add(1)
					return nil
				case err != nil:
					return fmt.Errorf("flush question %d: %w", a.QuestionID, err)
				}
				flushed.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	endTime, already, err := s.sessions.Finalize(ctx, sess.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotStarted) {
			return nil, ErrSessionNotStarted
		}
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	if !already {
		s.log.Info().
			Int64("session_id", sess.ID).
			Str("user_id", sess.UserID).
			Int32("flushed", flushed.Load()).
			Int32("rejected", rejected.Load()).
			Msg("Session submitted")
		s.publish(ctx, model.SessionEventSubmitted, sess, nil, now)
	}

	return &model.SubmitResult{
		SessionID:        sess.ID,
		EndTime:          endTime,
		AlreadySubmitted: already,
		Flushed:          int(flushed.Load()),
		Rejected:         int(rejected.Load()),
	}, nil
}

// GetSessionResult scores a session from the current answer key and the stored
// answers. Users only get it once correctness is revealed.
func (s *QuizService) GetSessionResult(ctx context.Context, viewer model.Identity, sessionID int64) (*model.SessionResult, error) {
	now := s.now()

	sess, err := s.readableSession(ctx, viewer, sessionID)
	if err != nil {
		return nil, err
	}

	window, err := s.windows.Window(ctx, sess.PackageID)
	if err != nil {
		return nil, fmt.Errorf("get package window: %w", err)
	}
	if !DecideVisibility(sess, NewSessionWindow(sess, window), viewer, now).RevealCorrectness {
		return nil, ErrResultHidden
	}

	questions, err := s.questions.ListBySubtest(ctx, sess.SubtestID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	result := ScoreSession(sess.ID, questions, answers)
	return &result, nil
}

// readableSession loads a session the viewer may read. Sessions owned by
// someone else look missing to non-privileged viewers.
func (s *QuizService) readableSession(ctx context.Context, viewer model.Identity, sessionID int64) (*model.QuizSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !CanRead(sess, viewer) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ownedSession loads a session the viewer may write to.
func (s *QuizService) ownedSession(ctx context.Context, viewer model.Identity, sessionID int64) (*model.QuizSession, error) {
	sess, err := s.readableSession(ctx, viewer, sessionID)
	if err != nil {
		return nil, err
	}
	if !viewer.Owns(sess) {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

func (s *QuizService) publish(ctx context.Context, kind model.SessionEventKind, sess *model.QuizSession, questionID *int64, at time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, model.SessionEvent{
		ID:         uuid.New(),
		Kind:       kind,
		SessionID:  sess.ID,
		UserID:     sess.UserID,
		PackageID:  sess.PackageID,
		SubtestID:  sess.SubtestID,
		QuestionID: questionID,
		OccurredAt: at,
	})
}
