package middleware

import (
	"net/http"

	logpkg "github.com/benvon/taskboard/internal/logger"
	"go.uber.org/zap"
)

// ErrorHandler recovers panics from downstream handlers and answers with a 500 envelope
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					// details stay in the log
					logger.Error("panic_recovered", append(logpkg.Request(r), zap.Any("error", err))...)
					respondError(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
