package auth

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const userKey contextKey = "user"

// Middleware rejects requests without a valid bearer token and injects the
// authenticated user into the request context for the handlers.
// A user lookup that fails for any other reason answers 500, not 401.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.Authenticate(r.Context(), CredentialFromRequest(r))
		if err != nil {
			if errors.Code(err) == errors.CodeInternal {
				g.log.Error("Authentication failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, errors.CodeInternal)
				return
			}
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}
