package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-ID"

// OptionalUser reads the account id forwarded by the authentication proxy.
// Requests without it continue as guests.
func OptionalUser(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(userIDHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				logger.Warn("Rejected malformed user header", zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid user identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.SetUserContext(r.Context(), userID)))
		})
	}
}

// Operator guards the admin routes with HTTP basic auth against a bcrypt hash
func Operator(config utils.AdminConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="operator"`)
				utils.ResponseUnauthorized(w, "Operator credentials required")
				return
			}

			validUser := config.Username != "" &&
				subtle.ConstantTimeCompare([]byte(username), []byte(config.Username)) == 1
			validPassword := config.PasswordHash != "" && utils.CheckPassword(config.PasswordHash, password)

			if !validUser || !validPassword {
				logger.Warn("Operator authentication failed",
					zap.String("username", username),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="operator"`)
				utils.ResponseUnauthorized(w, "Invalid operator credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.SetOperatorContext(r.Context(), username)))
		})
	}
}
