package runtime

import (
	"chat-hub/domain/event"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Session struct {
	id     string
	userID string
}

func newSession(userID string) *Session {
	return &Session{id: uuid.NewString(), userID: userID}
}

func (s *Session) ID() string { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) Username() string { return "" }
func (s *Session) Consume(_ context.Context, _ event.Event) error { return nil }
func (s *Session) Close() {}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	session := newSession(userID)

	// Given no user is connected
	req.Zero(registry.Count())

	// When a session registers
	superseded := registry.Register(userID, session)

	// Then it is the active session of the user
	req.Nil(superseded)
	found, ok := registry.Lookup(userID)
	req.True(ok)
	req.Equal(session, found)
	req.Equal(1, registry.Count())
}

func TestRegistry_Second_Login_Supersedes_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	first := newSession(userID)
	second := newSession(userID)

	registry.Register(userID, first)

	// When the same user logs in again
	superseded := registry.Register(userID, second)

	// Then the first session is returned to be closed
	req.Equal(first, superseded)
	found, _ := registry.Lookup(userID)
	req.Equal(second, found)
}

func TestRegistry_Stale_Unregister_Keeps_Newer_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	first := newSession(userID)
	second := newSession(userID)
	chatID := uuid.NewString()

	registry.Register(userID, first)
	registry.Join(chatID, first)
	registry.Register(userID, second)
	registry.Join(chatID, second)

	// When the superseded connection finally closes
	removed := registry.Unregister(userID, first)

	// Then the newer session is still registered
	req.False(removed)
	found, ok := registry.Lookup(userID)
	req.True(ok)
	req.Equal(second, found)

	// And only the stale session left the broadcast group
	sessions := registry.SessionsForChat(chatID)
	req.Len(sessions, 1)
	req.Equal(second.ID(), sessions[0].ID())
}

func TestRegistry_Unregister_Leaves_All_Groups(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	session := newSession(userID)
	chat1, chat2 := uuid.NewString(), uuid.NewString()

	registry.Register(userID, session)
	registry.Join(chat1, session)
	registry.Join(chat2, session)

	// When the session disconnects
	removed := registry.Unregister(userID, session)

	// Then no group keeps a reference to it
	req.True(removed)
	req.Nil(registry.SessionsForChat(chat1))
	req.Nil(registry.SessionsForChat(chat2))
	req.Empty(registry.chatMembers)
	req.Empty(registry.joined)
	req.Zero(registry.Count())
}

func TestRegistry_Join_One_Chat_Multiple_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	chatID := uuid.NewString()
	alice := newSession(uuid.NewString())
	bob := newSession(uuid.NewString())

	// When sessions subscribe a chat
	registry.Join(chatID, alice)
	registry.Join(chatID, bob)
	registry.Join(chatID, bob)

	// Then the group holds each session once
	req.Len(registry.SessionsForChat(chatID), 2)

	// When a session leaves
	registry.Leave(chatID, alice)

	// Then only the other one remains
	sessions := registry.SessionsForChat(chatID)
	req.Len(sessions, 1)
	req.Equal(bob.ID(), sessions[0].ID())
}
