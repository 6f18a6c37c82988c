package service

import "errors"

// Domain errors. Handlers match them with errors.Is.
var (
	ErrSessionNotFound    = errors.New("quiz session not found")
	ErrSubtestNotFound    = errors.New("subtest not found")
	ErrQuestionNotFound   = errors.New("question not found in this subtest")
	ErrNotSessionOwner    = errors.New("only the session owner may change answers")
	ErrSessionNotWritable = errors.New("session is not accepting answers")
	ErrSessionNotStarted  = errors.New("session has not started")
	ErrPackageNotOpen     = errors.New("package window has not opened yet")
	ErrPackageClosed      = errors.New("package window is closed")
	ErrInvalidAnswer      = errors.New("answer does not match the question type")
	ErrResultHidden       = errors.New("result is not available yet")
)
