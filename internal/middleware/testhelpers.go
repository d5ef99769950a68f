package middleware

import (
	"context"

	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/request"
)

// SetUserInContext attaches user to ctx the same way Auth does. Used by handler tests.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return request.WithUser(ctx, user)
}
