package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/response"
	"github.com/stemsi/tryout-backend/internal/service"
)

// serviceErrors maps domain errors to HTTP status and API code. Order matters
// only for errors that wrap one another.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrSessionNotWritable, http.StatusConflict, response.ErrSessionNotWritable},
	{service.ErrSessionNotStarted, http.StatusConflict, response.ErrSessionNotStarted},
	{service.ErrPackageNotOpen, http.StatusForbidden, response.ErrPackageNotOpen},
	{service.ErrPackageClosed, http.StatusForbidden, response.ErrPackageClosed},
	{service.ErrNotSessionOwner, http.StatusForbidden, response.ErrNotSessionOwner},
	{service.ErrResultHidden, http.StatusForbidden, response.ErrResultHidden},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrSubtestNotFound, http.StatusNotFound, response.ErrSubtestNotFound},
	{service.ErrPackageNotFound, http.StatusNotFound, response.ErrPackageNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrQuestionNotFound},
	{service.ErrInvalidAnswer, http.StatusBadRequest, response.ErrInvalidAnswer},
}

// classify returns the status and code for err. Unknown errors are internal.
func classify(err error) (int, response.ErrCode) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failService writes the envelope for a service error. Internal errors are
// logged once here; domain rejections are expected traffic and stay at debug.
func failService(c *gin.Context, log zerolog.Logger, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Str("request_id", c.GetString(response.ContextKeyRequestID)).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("op", op).Str("code", string(code)).Msg("Request rejected")
	}
	response.Fail(c, status, code)
}
