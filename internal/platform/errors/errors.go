package apperrors

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidConfig  = errors.New("invalid session config")
	ErrInvalidProfile = errors.New("invalid intensity profile")
	ErrNameInUse      = errors.New("session name in use")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyRunning = errors.New("session already started")
	ErrLoopFailure    = errors.New("engagement loop failed")
	ErrUnavailable    = errors.New("action plugin unavailable")
	ErrShuttingDown   = errors.New("registry shutting down")
)
