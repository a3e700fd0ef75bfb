// Package event defines the events pushed to connected sessions.
// None of them are persisted: a message is stored before its event exists.
package event

import (
	"chat-hub/domain"
)

type Name string

const (
	NewMessageName      Name = "new-message"
	UserTypingName      Name = "user-typing"
	UserStopTypingName  Name = "user-stop-typing"
	SessionReplacedName Name = "session-replaced"
)

// Event is anything a session can receive.
type Event interface {
	Name() Name
	Payload() any
}

// ChatEvent is addressed to the broadcast group of one chat.
type ChatEvent interface {
	Event
	ChatID() string
}

// Broadcast wraps a ChatEvent for the fanout. ExceptSession, when set,
// is skipped during delivery.
type Broadcast struct {
	Event         ChatEvent
	ExceptSession string
}

type NewMessage struct {
	Message domain.MessageView
}

func (e NewMessage) Name() Name     { return NewMessageName }
func (e NewMessage) ChatID() string { return e.Message.ChatID }
func (e NewMessage) Payload() any   { return e.Message }

type TypingPayload struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

type UserTyping struct {
	Chat     string
	UserID   string
	Username string
}

func (e UserTyping) Name() Name     { return UserTypingName }
func (e UserTyping) ChatID() string { return e.Chat }
func (e UserTyping) Payload() any {
	return TypingPayload{ChatID: e.Chat, UserID: e.UserID, Username: e.Username}
}

type UserStopTyping struct {
	Chat   string
	UserID string
}

func (e UserStopTyping) Name() Name     { return UserStopTypingName }
func (e UserStopTyping) ChatID() string { return e.Chat }
func (e UserStopTyping) Payload() any {
	return TypingPayload{ChatID: e.Chat, UserID: e.UserID}
}

// SessionReplaced is sent to a session superseded by a newer login of the same user.
type SessionReplaced struct{}

func (SessionReplaced) Name() Name   { return SessionReplacedName }
func (SessionReplaced) Payload() any { return struct{}{} }
