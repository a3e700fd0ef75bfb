package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newMessage(chatID, senderID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   lo.ToPtr(content),
		Type:      domain.MessageText,
		CreatedAt: at,
	}
}

// newChat stores a direct chat and returns its id.
func newChat(t *testing.T, chats *ChatRepository) string {
	t.Helper()
	chat, _, err := chats.FindOrCreateDirect(context.Background(), uuid.NewString(), uuid.NewString())
	require.NoError(t, err)
	return chat.ID
}

func TestMessageRepository_GetMessages_Ascending(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repo := NewMessageRepository(db, testLogger())
	chats := NewChatRepository(db, testLogger())
	chatID := newChat(t, chats)
	at := time.Now().UTC()

	// Given messages stored out of order
	third := newMessage(chatID, "clara", "3", at.Add(2*time.Minute))
	first := newMessage(chatID, "alice", "1", at)
	second := newMessage(chatID, "bob", "2", at.Add(time.Minute))
	other := newMessage(newChat(t, chats), "alice", "elsewhere", at)
	for _, m := range []domain.Message{third, first, other, second} {
		req.NoError(repo.StoreMessage(ctx, m))
	}

	// When the chat is listed
	messages, err := repo.GetMessages(ctx, chatID)
	req.NoError(err)

	// Then only its messages are returned by creation time
	req.Equal([]string{first.ID, second.ID, third.ID}, lo.Map(messages, func(m domain.Message, _ int) string { return m.ID }))

	last, err := repo.GetLastMessage(ctx, chatID)
	req.NoError(err)
	req.NotNil(last)
	req.Equal(third.ID, last.ID)
}

func TestMessageRepository_Concurrent_Chats_Stay_Sorted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repo := NewMessageRepository(db, testLogger())
	chats := NewChatRepository(db, testLogger())

	// Given one writer per chat, all running at once
	chatIDs := make([]string, 10)
	for i := range chatIDs {
		chatIDs[i] = newChat(t, chats)
	}
	var wg sync.WaitGroup
	for _, chatID := range chatIDs {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				req.NoError(repo.StoreMessage(ctx, newMessage(chatID, "u", "x", time.Now().UTC())))
			}
		}(chatID)
	}
	wg.Wait()

	// Then every chat holds its own messages in order
	for _, chatID := range chatIDs {
		messages, err := repo.GetMessages(ctx, chatID)
		req.NoError(err)
		req.Len(messages, 5)
		for i := 1; i < len(messages); i++ {
			req.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
		}
	}
}

func TestMessageRepository_StoreMessage_Bumps_Chat_Recency(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repo := NewMessageRepository(db, testLogger())
	chats := NewChatRepository(db, testLogger())
	chatID := newChat(t, chats)
	before, err := chats.GetChat(ctx, chatID)
	req.NoError(err)

	// When a message is stored
	at := before.UpdatedAt.Add(time.Minute)
	req.NoError(repo.StoreMessage(ctx, newMessage(chatID, "alice", "hi", at)))

	// Then the chat carries its timestamp
	got, err := chats.GetChat(ctx, chatID)
	req.NoError(err)
	req.True(at.Equal(got.UpdatedAt))

	// When an older message is stored
	req.NoError(repo.StoreMessage(ctx, newMessage(chatID, "bob", "late", at.Add(-time.Hour))))

	// Then the marker does not move backwards
	got, err = chats.GetChat(ctx, chatID)
	req.NoError(err)
	req.True(at.Equal(got.UpdatedAt))
}

func TestMessageRepository_StoreMessage_Into_Missing_Chat_Writes_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewMessageRepository(openDB(t), testLogger())

	// Given no chat
	orphan := newMessage("missing", "alice", "hi", time.Now().UTC())

	// When storing into it
	err := repo.StoreMessage(ctx, orphan)

	// Then the whole write is rejected
	req.ErrorIs(err, errors.ErrChatNotFound)
	_, err = repo.GetMessage(ctx, orphan.ID)
	req.ErrorIs(err, errors.ErrMessageNotFound)
	messages, err := repo.GetMessages(ctx, "missing")
	req.NoError(err)
	req.Empty(messages)
}

func TestMessageRepository_Lookups(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	repo := NewMessageRepository(db, testLogger())
	chatID := newChat(t, NewChatRepository(db, testLogger()))

	last, err := repo.GetLastMessage(ctx, chatID)
	req.NoError(err)
	req.Nil(last)

	file := newMessage(chatID, "alice", "", time.Now().UTC())
	file.Content = nil
	file.Type = domain.MessageImage
	file.File = &domain.FileMeta{URL: "https://files/1.png", Name: "1.png", Size: 42}
	req.NoError(repo.StoreMessage(ctx, file))

	got, err := repo.GetMessage(ctx, file.ID)
	req.NoError(err)
	req.Nil(got.Content)
	req.Equal(file.File, got.File)

	_, err = repo.GetMessage(ctx, "missing")
	req.ErrorIs(err, errors.ErrMessageNotFound)
}
