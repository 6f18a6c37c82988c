package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/i18n"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/response"
	"github.com/stemsi/tryout-backend/internal/service"
	"github.com/stemsi/tryout-backend/internal/validator"
	ws "github.com/stemsi/tryout-backend/internal/websocket"
)

// actionTimeout bounds one autosave or submit issued over the socket.
const actionTimeout = 15 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams autosave and submit actions for one session over a WebSocket.
type WSHandler struct {
	quiz     QuizService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(quiz QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		quiz:     quiz,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Every action goes through the same service calls as the REST endpoints, so
// timing decisions stay with the server.
func (h *WSHandler) SessionStream(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	sessionID, ok := paramID(c, "session_id")
	if !ok {
		return
	}

	// Reject before upgrading so the client gets a plain HTTP error.
	if _, err := h.quiz.GetSessionDetails(c.Request.Context(), viewer, sessionID); err != nil {
		failService(c, h.log, "ws_connect", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	// Messages stay in the language negotiated at upgrade time.
	locCtx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(c.GetHeader("Accept-Language")))

	wsLog := h.log.With().
		Str("user_id", viewer.UserID).
		Int64("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	s := &wsSession{h: h, conn: conn, log: wsLog, locCtx: locCtx, viewer: viewer, sessionID: sessionID}

	for {
		env, raw, err := ws.ReadMessage(conn)
		if err != nil {
			if raw != nil {
				ws.WriteError(conn, "", string(response.ErrInvalidPayload), s.message(response.ErrInvalidPayload))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch env.Action {
		case ws.ActionAutosave:
			s.autosave(env, raw)
		case ws.ActionSubmit:
			s.submit(env, raw)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, Ref: env.Ref, ServerTime: time.Now().UTC()})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			ws.WriteError(conn, env.Ref, string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
	}
}

// wsSession is the per-connection state of SessionStream.
type wsSession struct {
	h         *WSHandler
	conn      *websocket.Conn
	log       zerolog.Logger
	locCtx    context.Context
	viewer    model.Identity
	sessionID int64
}

func (s *wsSession) message(code response.ErrCode) string {
	return i18n.T(s.locCtx, string(code))
}

func (s *wsSession) fail(ref string, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("op", op).Msg("Stream action failed")
	}
	ws.WriteError(s.conn, ref, string(code), s.message(code))
}

func (s *wsSession) autosave(env ws.RequestEnvelope, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(s.conn, env.Ref, string(response.ErrInvalidPayload), s.message(response.ErrInvalidPayload))
		return
	}

	req := msg.SaveRequest(s.sessionID)
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(s.conn, env.Ref, string(response.ErrValidation), s.message(response.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	err := s.h.quiz.SaveAnswer(ctx, s.viewer, req)
	switch {
	case errors.Is(err, service.ErrSessionNotWritable):
		ws.WriteTyped(s.conn, ws.RejectedResponse{
			Event:      ws.EventRejected,
			Ref:        env.Ref,
			QuestionID: msg.QuestionID,
			Code:       string(response.ErrSessionNotWritable),
			Message:    s.message(response.ErrSessionNotWritable),
		})
	case err != nil:
		s.fail(env.Ref, "autosave", err)
	default:
		ws.WriteTyped(s.conn, ws.SavedResponse{Event: ws.EventSaved, Ref: env.Ref, QuestionID: msg.QuestionID})
	}
}

func (s *wsSession) submit(env ws.RequestEnvelope, raw []byte) {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(s.conn, env.Ref, string(response.ErrInvalidPayload), s.message(response.ErrInvalidPayload))
		return
	}

	req := model.SubmitRequest{SessionID: s.sessionID, Answers: msg.Answers}
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(s.conn, env.Ref, string(response.ErrValidation), s.message(response.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	res, err := s.h.quiz.Submit(ctx, s.viewer, req)
	if err != nil {
		s.fail(env.Ref, "submit", err)
		return
	}

	s.log.Info().Bool("already_submitted", res.AlreadySubmitted).Msg("Session submitted over stream")
	ws.WriteTyped(s.conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Ref: env.Ref, Result: *res})
}
