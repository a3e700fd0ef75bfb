//go:generate go run go.uber.org/mock/mockgen -source=read.go -destination=../mocks/mock_read_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"context"
)

type IReadRepository interface {
	// MarkRead stores read unless the (message, user) pair already exists.
	// created reports whether a new mark was written; a repeat is not an error.
	MarkRead(ctx context.Context, read domain.MessageRead) (created bool, err error)
	// GetReads returns the marks of each message ordered by ReadAt.
	GetReads(ctx context.Context, messageIDs []string) (map[string][]domain.ReadMark, error)
}
