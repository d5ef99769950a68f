package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier validates a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*models.JWTClaims, error)
}

// UserLookup loads the user a token was issued for
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth validates the bearer token and attaches the token's user to the request context
func Auth(verifier TokenVerifier, users UserLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.String("error", logpkg.SanitizeError(err)))
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			userID, err := uuid.Parse(claims.Sub)
			if err != nil {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, userID)
			switch {
			case errors.Is(err, database.ErrNotFound):
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Unknown user", logger)
				return
			case errors.Is(err, database.ErrUnavailable):
				logger.Error("user_lookup_unavailable", zap.Error(err))
				respondError(w, r, http.StatusServiceUnavailable, "Service Unavailable", "Storage is unavailable", logger)
				return
			case err != nil:
				logger.Error("user_lookup_failed", zap.Error(err))
				respondError(w, r, http.StatusInternalServerError, "Internal Server Error", "Database error", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}
