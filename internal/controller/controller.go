// Package controller drives one exam session from the client side: the local
// countdown, optimistic answer selection, navigation and submit. The server
// stays the only authority on timing; nothing here gates a write on the local
// clock.
package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/service"
)

const defaultSaveTimeout = 10 * time.Second

// API is the session API as seen by a client. Implemented by HTTPClient.
type API interface {
	GetSessionDetails(ctx context.Context, sessionID int64) (*model.SessionDetails, error)
	GetQuestions(ctx context.Context, subtestID int64) ([]model.QuestionView, error)
	SaveAnswer(ctx context.Context, req model.SaveAnswerRequest) error
	Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error)
}

// Options tunes a Controller. Zero values are usable.
type Options struct {
	// OnSaveError is called from the save goroutine when a background save
	// fails. It must not block.
	OnSaveError func(questionID int64, err error)
	SaveTimeout time.Duration
	Now         func() time.Time
}

// Controller holds the local state of one session. Safe for concurrent use.
type Controller struct {
	api       API
	sessionID int64
	viewer    model.Identity
	opts      Options
	log       zerolog.Logger

	mu        sync.Mutex
	details   *model.SessionDetails
	questions []model.QuestionView
	answers   map[int64]model.AnswerValue
	// versions counts local edits per question so a slow save cannot report
	// on a value the user already replaced.
	versions   map[int64]uint64
	failed     map[int64]error
	current    int
	reconciled bool
	submitted  bool
	// submitting freezes local answers between the flush wait and the
	// submit response.
	submitting bool

	saves sync.WaitGroup
}

// New creates a Controller for sessionID viewed by viewer.
func New(api API, sessionID int64, viewer model.Identity, opts Options, log zerolog.Logger) *Controller {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		api:       api,
		sessionID: sessionID,
		viewer:    viewer,
		opts:      opts,
		log:       log.With().Str("component", "session_controller").Int64("session_id", sessionID).Logger(),
		answers:   make(map[int64]model.AnswerValue),
		versions:  make(map[int64]uint64),
		failed:    make(map[int64]error),
	}
}

// Load fetches the session and its questions. Server answers are merged into
// the local map on the first successful load only, and only for questions the
// user has not answered locally. Later loads refresh timing and views.
func (c *Controller) Load(ctx context.Context) error {
	details, err := c.api.GetSessionDetails(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	questions, err := c.api.GetQuestions(ctx, details.SubtestID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.details = details
	c.questions = questions
	if details.EndTime != nil {
		c.submitted = true
	}
	if c.current >= len(questions) {
		c.current = 0
	}

	if !c.reconciled {
		for _, ua := range details.UserAnswers {
			if _, ok := c.answers[ua.QuestionID]; !ok {
				c.answers[ua.QuestionID] = ua.Value()
			}
		}
		c.reconciled = true
	}
	return nil
}

func (c *Controller) window() service.SessionWindow {
	return service.NewSessionWindow(&c.details.QuizSession, model.PackageWindow{
		PackageID: c.details.Package.ID,
		TOStart:   c.details.Package.TOStart,
		TOEnd:     c.details.Package.TOEnd,
	})
}

// Remaining is the advisory countdown at now, never negative.
func (c *Controller) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.details == nil || c.submitted {
		return 0
	}
	return c.window().Remaining(now)
}

// FormatRemaining renders d as MM:SS. Minutes are not wrapped into hours.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Run calls onTick with the remaining time immediately and then once a second
// until ctx is done or the countdown reaches zero. It never waits on saves.
func (c *Controller) Run(ctx context.Context, onTick func(remaining time.Duration)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		remaining := c.Remaining(c.opts.Now())
		onTick(remaining)
		if remaining == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) questionIndex(questionID int64) int {
	for i := range c.questions {
		if c.questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// Select records v for questionID locally and saves it in the background.
// The returned error covers only local checks; save failures arrive through
// FailedSaves and Options.OnSaveError.
func (c *Controller) Select(questionID int64, v model.AnswerValue) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}

	version, err := c.stage(questionID, v)
	if err != nil {
		return err
	}

	go c.save(questionID, v, version)
	return nil
}

// stage applies v to the local map and registers the pending save.
func (c *Controller) stage(questionID int64, v model.AnswerValue) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.details == nil {
		return 0, ErrNotLoaded
	}
	if c.submitted || c.submitting {
		return 0, ErrAlreadySubmitted
	}
	idx := c.questionIndex(questionID)
	if idx < 0 {
		return 0, ErrUnknownQuestion
	}
	q := c.questions[idx]
	if !q.Selectable {
		return 0, ErrReadOnly
	}
	if (q.Type == model.QuestionTypeEssay) != (v.Essay != nil) {
		return 0, ErrInvalidAnswer
	}

	c.answers[questionID] = v
	c.versions[questionID]++
	c.saves.Add(1)
	return c.versions[questionID], nil
}

// Retry re-sends the current local value of a failed question.
func (c *Controller) Retry(questionID int64) error {
	c.mu.Lock()
	v, ok := c.answers[questionID]
	_, failed := c.failed[questionID]
	c.mu.Unlock()
	if !ok || !failed {
		return nil
	}
	return c.Select(questionID, v)
}

func (c *Controller) save(questionID int64, v model.AnswerValue, version uint64) {
	defer c.saves.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SaveTimeout)
	defer cancel()

	err := c.api.SaveAnswer(ctx, model.SaveAnswerRequest{
		SessionID:    c.sessionID,
		QuestionID:   questionID,
		UserID:       c.viewer.UserID,
		AnswerChoice: v.Choice,
		EssayAnswer:  v.Essay,
	})

	c.mu.Lock()
	stale := c.versions[questionID] != version
	if !stale {
		if err != nil {
			c.failed[questionID] = err
		} else {
			delete(c.failed, questionID)
		}
	}
	c.mu.Unlock()

	if err == nil || stale {
		return
	}
	c.log.Warn().Err(err).
		Int64("question_id", questionID).
		Bool("retryable", IsRetryable(err)).
		Msg("Answer save failed")
	if c.opts.OnSaveError != nil {
		c.opts.OnSaveError(questionID, err)
	}
}

// FailedSaves returns the questions whose latest save failed.
func (c *Controller) FailedSaves() map[int64]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]error, len(c.failed))
	for id, err := range c.failed {
		out[id] = err
	}
	return out
}

// Answer returns the local value for questionID.
func (c *Controller) Answer(questionID int64) (model.AnswerValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.answers[questionID]
	return v, ok
}

// Answered reports whether a local value exists for questionID.
func (c *Controller) Answered(questionID int64) bool {
	_, ok := c.Answer(questionID)
	return ok
}

// Goto moves to the question at index i.
func (c *Controller) Goto(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.questions) {
		return fmt.Errorf("question index %d out of range [0,%d)", i, len(c.questions))
	}
	c.current = i
	return nil
}

// Next moves forward one question and reports whether it moved.
func (c *Controller) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current+1 >= len(c.questions) {
		return false
	}
	c.current++
	return true
}

// Prev moves back one question and reports whether it moved.
func (c *Controller) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == 0 {
		return false
	}
	c.current--
	return true
}

// Current returns the question on screen and its index.
func (c *Controller) Current() (model.QuestionView, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.questions) == 0 {
		return model.QuestionView{}, 0, false
	}
	return c.questions[c.current], c.current, true
}

// Submit waits for in-flight saves, then sends every local answer with the
// submit call. Selections are refused from the moment Submit starts. Once it
// succeeds further calls return ErrAlreadySubmitted.
func (c *Controller) Submit(ctx context.Context) (*model.SubmitResult, error) {
	c.mu.Lock()
	if c.details == nil {
		c.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if c.submitted || c.submitting {
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	c.submitting = true
	c.mu.Unlock()

	c.saves.Wait()

	c.mu.Lock()
	answers := make([]model.AnswerUpsert, 0, len(c.answers))
	for id, v := range c.answers {
		answers = append(answers, model.AnswerUpsert{QuestionID: id, AnswerChoice: v.Choice, EssayAnswer: v.Essay})
	}
	c.mu.Unlock()
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	res, err := c.api.Submit(ctx, model.SubmitRequest{SessionID: c.sessionID, Answers: answers})
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		return nil, fmt.Errorf("submit session: %w", err)
	}

	c.mu.Lock()
	c.submitting = false
	c.submitted = true
	end := res.EndTime
	c.details.EndTime = &end
	c.failed = make(map[int64]error)
	c.mu.Unlock()

	c.log.Info().Int("flushed", res.Flushed).Int("rejected", res.Rejected).Msg("Session submitted")
	return res, nil
}

// Submitted reports whether the session is closed as far as this client knows.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// ShouldRedirect reports whether the session screen must be left: after
// submit, or for a user once the package window has closed.
func (c *Controller) ShouldRedirect(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted {
		return true
	}
	if c.details == nil {
		return false
	}
	return service.ShouldRedirect(c.window(), c.viewer, now)
}
