package httpserver

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/charly05tr/ClassMatchAPI/internal/domain"
	"github.com/charly05tr/ClassMatchAPI/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token and attaches the user to the context.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				writeError(w, domain.Unauthenticated("missing or invalid Authorization header"))
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			userID, err := tokens.ParseUserID(tokenStr)
			if err != nil {
				writeError(w, domain.Unauthenticated("invalid token"))
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				zap.L().Error("auth middleware: load user", zap.Int64("user_id", userID), zap.Error(err))
				writeError(w, domain.Unauthenticated("user not found"))
				return
			}
			if user == nil {
				writeError(w, domain.Unauthenticated("user not found"))
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
