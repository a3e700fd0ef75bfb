package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	// Authentication
	ErrUnauthenticated    = fmt.Errorf("missing credential")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	// Validation
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrInvalidMessageType = fmt.Errorf("invalid message type")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrSelfDirectChat     = fmt.Errorf("cannot open a direct chat with yourself")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrRateLimited        = fmt.Errorf("rate limit exceeded")

	// Lookup
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrChatNotFound    = fmt.Errorf("chat not found")
	ErrMessageNotFound = fmt.Errorf("message not found")

	// Authorization
	ErrNotParticipant = fmt.Errorf("not a participant of this chat")

	// Uniqueness
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrUsernameTaken     = fmt.Errorf("username already taken")
	ErrEmailTaken        = fmt.Errorf("email already registered")

	// Runtime
	ErrSlowConsumer  = fmt.Errorf("session send buffer full")
	ErrSessionClosed = fmt.Errorf("session closed")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWords    = fmt.Errorf("no words have been found")
)

const CodeInternal = "internal"

var codes = []struct {
	err  error
	code string
}{
	{ErrUnauthenticated, "unauthenticated"},
	{ErrInvalidToken, "unauthenticated"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrInvalidPayload, "invalid_payload"},
	{ErrInvalidMessageType, "invalid_payload"},
	{ErrInvalidPassword, "invalid_payload"},
	{ErrSelfDirectChat, "invalid_payload"},
	{ErrUnknownEvent, "unknown_event"},
	{ErrRateLimited, "rate_limited"},
	{ErrUserNotFound, "user_not_found"},
	{ErrChatNotFound, "chat_not_found"},
	{ErrMessageNotFound, "message_not_found"},
	{ErrNotParticipant, "forbidden"},
	{ErrUserAlreadyExists, "conflict"},
	{ErrUsernameTaken, "username_taken"},
	{ErrEmailTaken, "email_taken"},
}

// Code maps an error to the stable code reported to clients.
// Anything outside the taxonomy is internal.
func Code(err error) string {
	for _, c := range codes {
		if goerrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Message returns a client-safe description of err.
// Internal errors never expose their detail.
func Message(err error) string {
	if Code(err) == CodeInternal {
		return "internal error"
	}
	return err.Error()
}

// Invalid wraps a validation failure so that it classifies as ErrInvalidPayload.
func Invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}

func Is(err, target error) bool { return goerrors.Is(err, target) }

func As(err error, target any) bool { return goerrors.As(err, target) }
