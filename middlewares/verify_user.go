package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arjunmehta14/image-press/database"
	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

type Auth struct {
	Store *database.Store
	Key   []byte
}

// Middleware requires a valid bearer token and resolves its subject to a
// stored user, which is injected into the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized: Authentication token required")
			return
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized: Bearer token required")
			return
		}

		username, err := utils.ParseToken(tokenString, a.Key)
		if err != nil {
			slog.Debug("auth failed: invalid or expired token", "error", err)
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			return
		}

		doc, err := a.Store.Read()
		if err != nil {
			utils.RespondInternal(w, err, "Unable to verify credentials")
			return
		}
		user, ok := doc.User(username)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized: Unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user.Safe())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user placed by Middleware.
func UserFromContext(ctx context.Context) (models.SafeUser, bool) {
	user, ok := ctx.Value(UserContextKey).(models.SafeUser)
	return user, ok
}
