//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"context"
)

type IMessageRepository interface {
	// StoreMessage persists message and moves the recency marker of its chat
	// forward in the same transaction. ErrChatNotFound when the chat is missing.
	StoreMessage(ctx context.Context, message domain.Message) error
	GetMessage(ctx context.Context, id string) (domain.Message, error)
	// GetMessages returns every message of the chat by ascending CreatedAt.
	GetMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	// GetLastMessage returns nil when the chat has no message.
	GetLastMessage(ctx context.Context, chatID string) (*domain.Message, error)
}
