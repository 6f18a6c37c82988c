package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

var (
	student = model.Identity{UserID: "u1", Role: model.RoleUser}
	other   = model.Identity{UserID: "u2", Role: model.RoleUser}
	teacher = model.Identity{UserID: "t1", Role: model.RoleTeacher}
	admin   = model.Identity{UserID: "a1", Role: model.RoleAdmin}
)

type fixture struct {
	db     *memDB
	svc    *QuizService
	events *recordingPublisher
	now    time.Time
}

func (f *fixture) at(d time.Duration) { f.now = t0.Add(d) }

// newFixture builds package 1 (open T0-1h to T0+3h) with subtest 10 (30 min)
// holding questions 1..5, and subtest 11 holding question 99.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	db.packages[1] = &model.Package{ID: 1, Name: "Tryout 1", Kind: model.PackageKindTryout, TOStart: t0.Add(-time.Hour), TOEnd: t0.Add(3 * time.Hour)}
	db.subtests[10] = &model.Subtest{ID: 10, PackageID: 1, Type: model.SubtestTypePU, Duration: 30}
	db.subtests[11] = &model.Subtest{ID: 11, PackageID: 1, Type: model.SubtestTypePK, Duration: 30}

	q1 := choiceQuestion(1, 2, 4)
	q1.SubtestID = 10
	q2 := essayQuestion(2, "Paris", 5)
	q2.SubtestID = 10
	db.questions[1] = &q1
	db.questions[2] = &q2
	for id := int64(3); id <= 5; id++ {
		q := choiceQuestion(id, 0, 1)
		q.SubtestID = 10
		db.questions[id] = &q
	}
	q99 := choiceQuestion(99, 0, 1)
	q99.SubtestID = 11
	db.questions[99] = &q99

	f := &fixture{db: db, events: &recordingPublisher{}, now: t0}
	f.svc = NewQuizService(QuizServiceDeps{
		Sessions:  memSessions{db},
		Answers:   memAnswers{db},
		Questions: memQuestions{db},
		Packages:  memPackages{db},
		Subtests:  memSubtests{db},
		Events:    f.events,
	}, 4, zerolog.Nop())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) start(t *testing.T, viewer model.Identity) *model.SessionDetails {
	t.Helper()
	d, err := f.svc.StartSession(context.Background(), viewer, 1, 10)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return d
}

func saveChoice(sessionID, questionID int64, choice int) model.SaveAnswerRequest {
	return model.SaveAnswerRequest{SessionID: sessionID, QuestionID: questionID, AnswerChoice: &choice}
}

func saveEssay(sessionID, questionID int64, text string) model.SaveAnswerRequest {
	return model.SaveAnswerRequest{SessionID: sessionID, QuestionID: questionID, EssayAnswer: &text}
}

func TestStartSessionCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.start(t, student)
	if first.State != string(StateInProgress) {
		t.Fatalf("expected IN_PROGRESS, got %s", first.State)
	}
	if first.RemainingSeconds != 30*60 {
		t.Fatalf("expected 1800s remaining, got %d", first.RemainingSeconds)
	}
	if !first.Writable || first.Redirect {
		t.Fatalf("expected writable without redirect, got %+v", first)
	}
	if first.Subtest.Label != "Kemampuan Penalaran Umum" {
		t.Fatalf("unexpected label %q", first.Subtest.Label)
	}

	f.at(5 * time.Minute)
	second, err := f.svc.StartSession(ctx, student, 1, 10)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same session %d, got %d", first.ID, second.ID)
	}
	if !second.StartTime.Equal(t0) {
		t.Fatalf("start time must not move, got %v", second.StartTime)
	}
	if second.RemainingSeconds != 25*60 {
		t.Fatalf("expected 1500s remaining, got %d", second.RemainingSeconds)
	}

	if kinds := f.events.kinds(); len(kinds) != 1 || kinds[0] != model.SessionEventStarted {
		t.Fatalf("expected a single session_started event, got %v", kinds)
	}
}

func TestStartSessionPackageWindow(t *testing.T) {
	tests := []struct {
		name    string
		viewer  model.Identity
		offset  time.Duration
		wantErr error
	}{
		{name: "user before open", viewer: student, offset: -2 * time.Hour, wantErr: ErrPackageNotOpen},
		{name: "user after close", viewer: student, offset: 3 * time.Hour, wantErr: ErrPackageClosed},
		{name: "user inside", viewer: student, offset: 0},
		{name: "teacher before open", viewer: teacher, offset: -2 * time.Hour},
		{name: "admin after close", viewer: admin, offset: 4 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.at(tc.offset)
			_, err := f.svc.StartSession(context.Background(), tc.viewer, 1, 10)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartSessionAfterCloseReturnsExisting(t *testing.T) {
	f := newFixture(t)
	first := f.start(t, student)

	f.at(3*time.Hour + time.Minute)
	d, err := f.svc.StartSession(context.Background(), student, 1, 10)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if d.ID != first.ID || !d.Redirect || d.Writable {
		t.Fatalf("expected existing session with redirect, got %+v", d)
	}
}

func TestStartSessionSubtestMismatch(t *testing.T) {
	f := newFixture(t)
	f.db.packages[2] = &model.Package{ID: 2, TOStart: t0.Add(-time.Hour), TOEnd: t0.Add(time.Hour)}

	_, err := f.svc.StartSession(context.Background(), student, 2, 10)
	if !errors.Is(err, ErrSubtestNotFound) {
		t.Fatalf("expected ErrSubtestNotFound, got %v", err)
	}
	_, err = f.svc.StartSession(context.Background(), student, 1, 404)
	if !errors.Is(err, ErrSubtestNotFound) {
		t.Fatalf("expected ErrSubtestNotFound, got %v", err)
	}
}

func TestSaveAnswerDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)

	f.at(29 * time.Minute)
	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 2)); err != nil {
		t.Fatalf("save at T0+29m: %v", err)
	}

	f.at(31 * time.Minute)
	err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 3))
	if !errors.Is(err, ErrSessionNotWritable) {
		t.Fatalf("expected ErrSessionNotWritable at T0+31m, got %v", err)
	}

	stored := f.db.answers[[2]int64{d.ID, 1}]
	if stored.AnswerChoice == nil || *stored.AnswerChoice != 2 {
		t.Fatalf("rejected write must not change the stored answer, got %v", stored.AnswerChoice)
	}

	kinds := f.events.kinds()
	if kinds[len(kinds)-1] != model.SessionEventAnswerRejected {
		t.Fatalf("expected answer_rejected event last, got %v", kinds)
	}
}

func TestSaveAnswerIdempotentAndLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)

	for i := 0; i < 3; i++ {
		if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 1)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if n := len(f.db.answers); n != 1 {
		t.Fatalf("expected one stored row, got %d", n)
	}

	f.at(time.Minute)
	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 3)); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored := f.db.answers[[2]int64{d.ID, 1}]
	if *stored.AnswerChoice != 3 || !stored.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("expected latest write to win, got %+v", stored)
	}
}

func TestSaveAnswerConcurrentKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for qid := int64(1); qid <= 5; qid++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := saveChoice(d.ID, qid, 0)
			if qid == 2 {
				req = saveEssay(d.ID, qid, "Paris")
			}
			errs <- f.svc.SaveAnswer(ctx, student, req)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if n := len(f.db.answers); n != 5 {
		t.Fatalf("expected 5 independent rows, got %d", n)
	}
}

func TestSaveAnswerRejections(t *testing.T) {
	tests := []struct {
		name    string
		viewer  model.Identity
		req     func(sessionID int64) model.SaveAnswerRequest
		wantErr error
	}{
		{
			name:    "essay value on choice question",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveEssay(id, 1, "B") },
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "choice value on essay question",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 2, 0) },
			wantErr: ErrInvalidAnswer,
		},
		{
			name:   "both values",
			viewer: student,
			req: func(id int64) model.SaveAnswerRequest {
				r := saveChoice(id, 1, 0)
				r.EssayAnswer = strPtr("x")
				return r
			},
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "neither value",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return model.SaveAnswerRequest{SessionID: id, QuestionID: 1} },
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "essay not valid UTF-8",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveEssay(id, 2, "Pa\xffris") },
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "option out of range",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 1, 7) },
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "question of another subtest",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 99, 0) },
			wantErr: ErrQuestionNotFound,
		},
		{
			name:    "unknown question",
			viewer:  student,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 404, 0) },
			wantErr: ErrQuestionNotFound,
		},
		{
			name:    "another user",
			viewer:  other,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 1, 0) },
			wantErr: ErrSessionNotFound,
		},
		{
			name:    "admin on someone else's session",
			viewer:  admin,
			req:     func(id int64) model.SaveAnswerRequest { return saveChoice(id, 1, 0) },
			wantErr: ErrNotSessionOwner,
		},
		{
			name:    "unknown session",
			viewer:  student,
			req:     func(int64) model.SaveAnswerRequest { return saveChoice(404, 1, 0) },
			wantErr: ErrSessionNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			d := f.start(t, student)
			err := f.svc.SaveAnswer(context.Background(), tc.viewer, tc.req(d.ID))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if len(f.db.answers) != 0 {
				t.Fatal("rejected save must not store anything")
			}
		})
	}
}

func TestPackageCloseOverridesPersonalTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.packages[2] = &model.Package{ID: 2, TOStart: t0.Add(-time.Hour), TOEnd: t0.Add(60 * time.Minute)}
	f.db.subtests[20] = &model.Subtest{ID: 20, PackageID: 2, Type: model.SubtestTypeLB, Duration: 90}
	q := choiceQuestion(21, 0, 1)
	q.SubtestID = 20
	f.db.questions[21] = &q

	d, err := f.svc.StartSession(ctx, student, 2, 20)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	f.at(65 * time.Minute)
	details, err := f.svc.GetSessionDetails(ctx, student, d.ID)
	if err != nil {
		t.Fatalf("GetSessionDetails: %v", err)
	}
	if !details.Redirect || !details.ClosedByPackage || details.Writable {
		t.Fatalf("expected redirect after package close, got %+v", details)
	}
	if details.RemainingSeconds != 25*60 {
		t.Fatalf("personal timer still shows 25m, got %ds", details.RemainingSeconds)
	}
	if details.State != string(StateExpired) {
		t.Fatalf("expected EXPIRED, got %s", details.State)
	}

	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 21, 0)); !errors.Is(err, ErrSessionNotWritable) {
		t.Fatalf("expected ErrSessionNotWritable, got %v", err)
	}

	staff, err := f.svc.GetSessionDetails(ctx, teacher, d.ID)
	if err != nil {
		t.Fatalf("GetSessionDetails as teacher: %v", err)
	}
	if staff.Redirect {
		t.Fatal("privileged viewers are never redirected")
	}
}

func TestGetSessionDetailsStartsProvisionedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.db.addSession(model.QuizSession{UserID: "u1", PackageID: 1, SubtestID: 10, Duration: 30})

	if _, err := f.svc.GetSessionDetails(ctx, other, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for another user, got %v", err)
	}

	f.at(2 * time.Minute)
	d, err := f.svc.GetSessionDetails(ctx, student, sess.ID)
	if err != nil {
		t.Fatalf("GetSessionDetails: %v", err)
	}
	if d.StartTime == nil || !d.StartTime.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("expected start time set on first access, got %v", d.StartTime)
	}
	if d.State != string(StateInProgress) {
		t.Fatalf("expected IN_PROGRESS, got %s", d.State)
	}
}

func TestSubmitFlushesThenFinalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)

	f.at(10 * time.Minute)
	res, err := f.svc.Submit(ctx, student, model.SubmitRequest{
		SessionID: d.ID,
		Answers: []model.AnswerUpsert{
			{QuestionID: 1, AnswerChoice: intPtr(2)},
			{QuestionID: 2, EssayAnswer: strPtr("Paris")},
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.AlreadySubmitted || res.Flushed != 2 || res.Rejected != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.EndTime.Equal(t0.Add(10 * time.Minute)) {
		t.Fatalf("unexpected end time %v", res.EndTime)
	}
	if len(f.db.answers) != 2 {
		t.Fatalf("expected 2 flushed answers, got %d", len(f.db.answers))
	}

	f.at(12 * time.Minute)
	again, err := f.svc.Submit(ctx, student, model.SubmitRequest{SessionID: d.ID})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if !again.AlreadySubmitted || !again.EndTime.Equal(res.EndTime) {
		t.Fatalf("second submit must be a no-op, got %+v", again)
	}

	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 3, 0)); !errors.Is(err, ErrSessionNotWritable) {
		t.Fatalf("expected ErrSessionNotWritable after submit, got %v", err)
	}

	details, err := f.svc.GetSessionDetails(ctx, student, d.ID)
	if err != nil {
		t.Fatalf("GetSessionDetails: %v", err)
	}
	if details.State != string(StateSubmitted) {
		t.Fatalf("expected SUBMITTED, got %s", details.State)
	}
}

// staleWindows serves a package close older than the stored one, as an
// unrefreshed cache entry would after the close is extended.
type staleWindows struct{ toEnd time.Time }

func (w staleWindows) Window(_ context.Context, packageID int64) (model.PackageWindow, error) {
	return model.PackageWindow{PackageID: packageID, TOStart: t0.Add(-time.Hour), TOEnd: w.toEnd}, nil
}

func TestStaleWindowCacheDoesNotRejectWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)
	f.svc.windows = staleWindows{toEnd: t0.Add(20 * time.Minute)}

	f.at(25 * time.Minute)
	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 2)); err != nil {
		t.Fatalf("save at T0+25m with stale cache: %v", err)
	}

	res, err := f.svc.Submit(ctx, student, model.SubmitRequest{
		SessionID: d.ID,
		Answers:   []model.AnswerUpsert{{QuestionID: 3, AnswerChoice: intPtr(1)}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Flushed != 1 || res.Rejected != 0 {
		t.Fatalf("expected 1 flushed and 0 rejected, got %+v", res)
	}
	for _, qid := range []int64{1, 3} {
		if _, ok := f.db.answers[[2]int64{d.ID, qid}]; !ok {
			t.Fatalf("answer to question %d was not stored", qid)
		}
	}
}

func TestSubmitAfterExpiry(t *testing.T) {
	f := newFixture(t)
	d := f.start(t, student)

	f.at(40 * time.Minute)
	res, err := f.svc.Submit(context.Background(), student, model.SubmitRequest{
		SessionID: d.ID,
		Answers:   []model.AnswerUpsert{{QuestionID: 1, AnswerChoice: intPtr(2)}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Flushed != 0 || res.Rejected != 1 {
		t.Fatalf("expected the late flush to be rejected, got %+v", res)
	}
	if f.db.sessions[d.ID].EndTime == nil {
		t.Fatal("expired session must still be closed")
	}
}

func TestSubmitFailureLeavesSessionOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(db *memDB)
		answers []model.AnswerUpsert
		wantErr error
	}{
		{
			name:    "unknown question in flush set",
			answers: []model.AnswerUpsert{{QuestionID: 99, AnswerChoice: intPtr(0)}},
			wantErr: ErrQuestionNotFound,
		},
		{
			name:    "invalid value in flush set",
			answers: []model.AnswerUpsert{{QuestionID: 1, EssayAnswer: strPtr("B")}},
			wantErr: ErrInvalidAnswer,
		},
		{
			name:    "store failure",
			setup:   func(db *memDB) { db.upsertErr = errors.New("connection reset") },
			answers: []model.AnswerUpsert{{QuestionID: 1, AnswerChoice: intPtr(2)}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			d := f.start(t, student)
			if tc.setup != nil {
				tc.setup(f.db)
			}

			_, err := f.svc.Submit(context.Background(), student, model.SubmitRequest{SessionID: d.ID, Answers: tc.answers})
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if f.db.sessions[d.ID].EndTime != nil {
				t.Fatal("session must stay open when the flush fails")
			}
		})
	}
}

func TestSubmitNotStarted(t *testing.T) {
	f := newFixture(t)
	sess := f.db.addSession(model.QuizSession{UserID: "u1", PackageID: 1, SubtestID: 10, Duration: 30})

	_, err := f.svc.Submit(context.Background(), student, model.SubmitRequest{SessionID: sess.ID})
	if !errors.Is(err, ErrSessionNotStarted) {
		t.Fatalf("expected ErrSessionNotStarted, got %v", err)
	}
}

func TestGetQuestionsRevealsAfterDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)
	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 2)); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.at(5 * time.Minute)
	inProgress, err := f.svc.GetQuestionsBySubtest(ctx, student, 10)
	if err != nil {
		t.Fatalf("GetQuestionsBySubtest: %v", err)
	}
	if len(inProgress) != 5 || inProgress[0].ID != 1 {
		t.Fatalf("expected 5 ordered questions, got %d", len(inProgress))
	}
	for _, q := range inProgress {
		if q.CorrectAnswerChoice != nil || q.ReferenceAnswer != nil || q.EarnedScore != nil || q.RevealCorrectness {
			t.Fatalf("question %d leaks correctness while in progress", q.ID)
		}
		if !q.Selectable {
			t.Fatalf("question %d must be selectable", q.ID)
		}
	}

	f.at(31 * time.Minute)
	expired, err := f.svc.GetQuestionsBySubtest(ctx, student, 10)
	if err != nil {
		t.Fatalf("GetQuestionsBySubtest: %v", err)
	}
	if expired[0].CorrectAnswerChoice == nil || *expired[0].CorrectAnswerChoice != 2 {
		t.Fatal("expected correct choice after deadline")
	}
	if expired[0].EarnedScore == nil || *expired[0].EarnedScore != 4 {
		t.Fatalf("expected earned 4, got %v", expired[0].EarnedScore)
	}
	if expired[0].Selectable {
		t.Fatal("expired questions must not be selectable")
	}
}

func TestGetQuestionsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GetQuestionsBySubtest(ctx, student, 10); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound without a session, got %v", err)
	}
	if _, err := f.svc.GetQuestionsBySubtest(ctx, student, 404); !errors.Is(err, ErrSubtestNotFound) {
		t.Fatalf("expected ErrSubtestNotFound, got %v", err)
	}

	views, err := f.svc.GetQuestionsBySubtest(ctx, teacher, 10)
	if err != nil {
		t.Fatalf("GetQuestionsBySubtest as teacher: %v", err)
	}
	if views[1].ReferenceAnswer == nil || *views[1].ReferenceAnswer != "Paris" {
		t.Fatal("teacher must see the reference answer")
	}
	if views[1].Selectable {
		t.Fatal("teacher without a session cannot select")
	}
}

func TestGetSessionResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)

	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.svc.SaveAnswer(ctx, student, saveEssay(d.ID, 2, " paris ")); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.at(10 * time.Minute)
	if _, err := f.svc.Submit(ctx, student, model.SubmitRequest{SessionID: d.ID}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.GetSessionResult(ctx, student, d.ID); !errors.Is(err, ErrResultHidden) {
		t.Fatalf("expected ErrResultHidden before the deadline, got %v", err)
	}

	res, err := f.svc.GetSessionResult(ctx, teacher, d.ID)
	if err != nil {
		t.Fatalf("GetSessionResult as teacher: %v", err)
	}
	if res.TotalScore != 4 || res.MaxScore != 12 {
		t.Fatalf("expected 4/12, got %d/%d", res.TotalScore, res.MaxScore)
	}

	f.at(31 * time.Minute)
	res, err = f.svc.GetSessionResult(ctx, student, d.ID)
	if err != nil {
		t.Fatalf("GetSessionResult: %v", err)
	}
	if res.TotalScore != 4 {
		t.Fatalf("expected 4, got %d", res.TotalScore)
	}
}

func TestMonitorSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.start(t, student)
	if err := f.svc.SaveAnswer(ctx, student, saveChoice(d.ID, 1, 2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.db.addSession(model.QuizSession{UserID: "u2", PackageID: 1, SubtestID: 10, Duration: 30})

	mon := NewMonitorService(memSessions{f.db}, storeWindowSource{packages: memPackages{f.db}})
	mon.now = func() time.Time { return t0.Add(time.Minute) }

	snap, err := mon.Snapshot(ctx, 1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Counts[string(StateInProgress)] != 1 || snap.Counts[string(StateNotStarted)] != 1 {
		t.Fatalf("unexpected counts %v", snap.Counts)
	}
	if snap.Sessions[0].Answered != 1 || snap.Sessions[0].RemainingSeconds != 29*60 {
		t.Fatalf("unexpected progress %+v", snap.Sessions[0])
	}

	if _, err := mon.Snapshot(ctx, 404); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
}
