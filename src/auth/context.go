package auth

import (
	"context"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"brokergateway/src/model"
	"brokergateway/src/repository"
)

type contextKey string

const UserKey contextKey = "user"

func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// BasicAuthMiddleware resolves the request principal from HTTP Basic
// credentials. Every broker route requires an authenticated user; there
// is no anonymous or implicit default principal.
func BasicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok || strings.TrimSpace(email) == "" {
			unauthorized(w)
			return
		}

		user, err := repository.NewUserRepository().FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			logger.WithError(err).Error("failed to load user during authentication")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if user == nil || !user.IsActive {
			unauthorized(w)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			logger.WithField("user_id", user.ID).Warn("password mismatch during authentication")
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="brokergateway"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
