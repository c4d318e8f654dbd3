package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"echoAppBack/internal/pkg/cookie"
	authservice "echoAppBack/internal/service/auth"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// AccountID extracts the authenticated account id placed into the
// request context by Session.
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok
}

// Session validates the session token from the auth cookie or the
// Authorization bearer header and passes the subject downstream. Any
// failure is a generic 401.
func Session(
	log *slog.Logger,
	auth *authservice.Auth,
	next http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middleware.Session"

		token := extractToken(r)
		if token == "" {
			log.With(slog.String("op", op)).Info("no session token in request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accountID, err := auth.ValidateSession(token, time.Now())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(cookie.AuthTokenName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return token
	}

	return ""
}
