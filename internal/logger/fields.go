package logger

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserID tags an entry with the owning user
func UserID(id uuid.UUID) zap.Field {
	return zap.String("user_id", id.String())
}

// Request returns the method and sanitized path of r
func Request(r *http.Request) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", SanitizePath(r.URL.Path)),
	}
}

// ClientIP tags an entry with a sanitized client address
func ClientIP(ip string) zap.Field {
	return zap.String("ip", SanitizeString(ip, maxIPLength))
}

// Title tags an entry with a sanitized task or category title
func Title(title string) zap.Field {
	return zap.String("title", SanitizeTitle(title))
}
