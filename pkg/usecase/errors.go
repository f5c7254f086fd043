package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrActionNotFound  = errors.New("action not found")
	ErrChannelNotFound = errors.New("channel not found")

	// Access control errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	// Status errors
	ErrActionNotPending = errors.New("action is not pending")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// ErrExecutionFailed wraps failures of the reasoning service while executing an action
	ErrExecutionFailed = errors.New("action execution failed")
)

// Context keys for error values
const (
	ActionIDKey  = "action_id"
	ChannelIDKey = "channel_id"
	UserIDKey    = "user_id"
	PlatformKey  = "platform"
)
