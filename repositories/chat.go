//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"context"
)

type IChatRepository interface {
	// CreateGroup always inserts a new chat with its participant edges.
	CreateGroup(ctx context.Context, chat domain.Chat) (domain.Chat, error)
	// FindOrCreateDirect returns the only direct chat of the unordered pair {userA, userB},
	// creating it when missing. created is false when another caller won the race.
	FindOrCreateDirect(ctx context.Context, userA, userB string) (chat domain.Chat, created bool, err error)
	GetChat(ctx context.Context, id string) (domain.Chat, error)
	// ListChatsForUser is sorted by most recent activity first.
	ListChatsForUser(ctx context.Context, userID string) ([]domain.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}
