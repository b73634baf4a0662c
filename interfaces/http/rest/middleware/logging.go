package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// userIDKey carries a holder the authentication middleware fills in, so
// the outer logger can report the user even though context values set
// downstream never propagate back up.
type userIDKey struct{}

func recordUserID(ctx context.Context, userID string) {
	if holder, ok := ctx.Value(userIDKey{}).(*string); ok {
		*holder = userID
	}
}

// Logger creates a request logging middleware. Server errors are logged
// at error level, everything else at info.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			userID := new(string)
			r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.String("userAgent", r.UserAgent()),
			}
			if *userID != "" {
				fields = append(fields, zap.String("userID", *userID))
			}

			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("HTTP Request", fields...)
			} else {
				logger.Info("HTTP Request", fields...)
			}
		})
	}
}
