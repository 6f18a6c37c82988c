package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/middleware"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/response"
	"github.com/stemsi/tryout-backend/internal/validator"
)

// QuizService is the session engine used by the REST and WebSocket handlers.
// Implemented by service.QuizService.
type QuizService interface {
	StartSession(ctx context.Context, viewer model.Identity, packageID, subtestID int64) (*model.SessionDetails, error)
	GetSessionDetails(ctx context.Context, viewer model.Identity, sessionID int64) (*model.SessionDetails, error)
	GetQuestionsBySubtest(ctx context.Context, viewer model.Identity, subtestID int64) ([]model.QuestionView, error)
	SaveAnswer(ctx context.Context, viewer model.Identity, req model.SaveAnswerRequest) error
	Submit(ctx context.Context, viewer model.Identity, req model.SubmitRequest) (*model.SubmitResult, error)
	GetSessionResult(ctx context.Context, viewer model.Identity, sessionID int64) (*model.SessionResult, error)
}

// QuizHandler serves the tryout session endpoints.
type QuizHandler struct {
	quiz QuizService
	log  zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quiz QuizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quiz: quiz,
		log:  log.With().Str("component", "quiz_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/packages/:package_id/subtests/:subtest_id/sessions
// Returns the caller's session on the subtest, creating and starting it on first call.
func (h *QuizHandler) StartSession(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	packageID, ok := paramID(c, "package_id")
	if !ok {
		return
	}
	subtestID, ok := paramID(c, "subtest_id")
	if !ok {
		return
	}

	details, err := h.quiz.StartSession(c.Request.Context(), viewer, packageID, subtestID)
	if err != nil {
		failService(c, h.log, "start_session", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": details})
}

// GetSessionDetails godoc
// GET /api/v1/sessions/:session_id
func (h *QuizHandler) GetSessionDetails(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	details, err := h.quiz.GetSessionDetails(c.Request.Context(), viewer, sessionID)
	if err != nil {
		failService(c, h.log, "get_session_details", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": details})
}

// GetQuestionsBySubtest godoc
// GET /api/v1/subtests/:subtest_id/questions
// Correct answers and explanations are only present once the viewer may see them.
func (h *QuizHandler) GetQuestionsBySubtest(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	subtestID, ok := paramID(c, "subtest_id")
	if !ok {
		return
	}

	questions, err := h.quiz.GetQuestionsBySubtest(c.Request.Context(), viewer, subtestID)
	if err != nil {
		failService(c, h.log, "get_questions", err)
		return
	}
	if questions == nil {
		questions = []model.QuestionView{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// SaveAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Upserts one answer. A late write gets 409 SESSION_NOT_WRITABLE and changes nothing.
func (h *QuizHandler) SaveAnswer(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.SessionID != 0 && req.SessionID != sessionID {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	req.SessionID = sessionID

	if err := h.quiz.SaveAnswer(c.Request.Context(), viewer, req); err != nil {
		failService(c, h.log, "save_answer", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":     "saved",
		"questionId": req.QuestionID,
	})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Flushes the supplied answers and closes the session. Repeating it is a no-op.
func (h *QuizHandler) Submit(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	var req model.SubmitRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}
	req.SessionID = sessionID

	res, err := h.quiz.Submit(c.Request.Context(), viewer, req)
	if err != nil {
		failService(c, h.log, "submit", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": res})
}

// GetSessionResult godoc
// GET /api/v1/sessions/:session_id/result
func (h *QuizHandler) GetSessionResult(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	res, err := h.quiz.GetSessionResult(c.Request.Context(), viewer, sessionID)
	if err != nil {
		failService(c, h.log, "get_result", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": res})
}

func requireViewer(c *gin.Context) (model.Identity, bool) {
	viewer, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return viewer, ok
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
