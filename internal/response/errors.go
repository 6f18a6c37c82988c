package response

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tryout-backend/internal/i18n"
)

// ErrCode is a typed error code enum for consistent API error identification.
// Every code is also the message ID in the locale bundles.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrPrivilegedAccessOnly ErrCode = "PRIVILEGED_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrPackageNotFound ErrCode = "PACKAGE_NOT_FOUND"
	ErrSubtestNotFound ErrCode = "SUBTEST_NOT_FOUND"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrQuestionNotFound   ErrCode = "QUESTION_NOT_FOUND"
	ErrNotSessionOwner    ErrCode = "NOT_SESSION_OWNER"
	ErrPackageNotOpen     ErrCode = "PACKAGE_NOT_OPEN"
	ErrPackageClosed      ErrCode = "PACKAGE_CLOSED"
	ErrSessionNotStarted  ErrCode = "SESSION_NOT_STARTED"
	ErrSessionNotWritable ErrCode = "SESSION_NOT_WRITABLE"
	ErrInvalidAnswer      ErrCode = "INVALID_ANSWER"
	ErrResultHidden       ErrCode = "RESULT_NOT_AVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns the message for code in the language negotiated for the
// request, falling back to the default locale.
func GetMessage(c *gin.Context, code ErrCode) string {
	if c == nil || c.Request == nil {
		return i18n.T(context.Background(), string(code))
	}
	return i18n.T(c.Request.Context(), string(code))
}
