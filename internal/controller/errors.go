package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

var (
	ErrNotLoaded        = errors.New("session is not loaded")
	ErrUnknownQuestion  = errors.New("question is not part of this session")
	ErrReadOnly         = errors.New("question is not selectable")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrInvalidAnswer    = errors.New("answer does not match the question type")
)

// CodeSessionNotWritable is the API code of a late write.
const CodeSessionNotWritable = "SESSION_NOT_WRITABLE"

// APIError is an error envelope returned by the session API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsRetryable reports whether a failed save or submit may succeed when sent
// again: transport failures, timeouts, throttling and server errors. Timing
// rejections and data-integrity errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &netErr) ||
		errors.As(err, &urlErr)
}

// IsRejected reports a write refused because the session is closed. It is a
// notice for the user, not a page-level failure.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeSessionNotWritable
}
