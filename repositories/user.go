//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"context"
	"time"
)

// IUserRepository is implemented by every store.
// Lookups by email and username are case-insensitive.
type IUserRepository interface {
	// CreateUser persists user, assigning ID and CreatedAt when empty.
	// Returns ErrUsernameTaken or ErrEmailTaken on a uniqueness violation.
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	// GetUsers skips unknown ids.
	GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (domain.User, error)
	UpdatePrivacy(ctx context.Context, id string, settings domain.PrivacySettings) (domain.User, error)
	// SetStatus leaves LastSeen untouched when lastSeen is nil.
	SetStatus(ctx context.Context, id string, status domain.UserStatus, lastSeen *time.Time) error
	// SearchUsers matches query as a case-insensitive substring of the username or the email.
	// The user excludeID is never returned.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]domain.User, error)
}
