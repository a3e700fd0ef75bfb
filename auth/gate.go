package auth

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/repositories"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Gate binds a verified user to a connection attempt.
// It runs once, before the connection is accepted.
type Gate struct {
	tokens *TokenManager
	users  repositories.IUserRepository
	log    *slog.Logger
}

func NewGate(tokens *TokenManager, users repositories.IUserRepository, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authenticate verifies credential and loads the user it names.
func (g *Gate) Authenticate(ctx context.Context, credential string) (domain.User, error) {
	if credential == "" {
		observability.AuthFailures.WithLabelValues("missing").Inc()
		return domain.User{}, errors.ErrUnauthenticated
	}
	claims, err := g.tokens.Validate(credential)
	if err != nil {
		observability.AuthFailures.WithLabelValues("invalid_token").Inc()
		g.log.Debug("Token rejected", "error", err)
		return domain.User{}, err
	}
	user, err := g.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, errors.ErrUserNotFound) {
		observability.AuthFailures.WithLabelValues("unknown_user").Inc()
		return domain.User{}, fmt.Errorf("%w: %w", errors.ErrUnauthenticated, err)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %s: %w", claims.UserID, err)
	}
	return user, nil
}

// CredentialFromRequest reads the bearer token from the Authorization header,
// falling back to the "token" query parameter for browser WebSocket clients.
func CredentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
