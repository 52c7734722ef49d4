package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound     = errors.New("task not found")
	ErrTaskFinished = errors.New("task already in a terminal state")
	ErrInvalidInput = errors.New("invalid input")
)
