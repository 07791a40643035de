package middleware

import (
	"impactlab/internal/platform/logging"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger writes one structured line per request.
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			}
			if reqID := chiMiddleware.GetReqID(r.Context()); reqID != "" {
				args = append(args, "request_id", reqID)
			}
			if sess := SessionFromContext(r.Context()); sess != nil {
				args = append(args, "user_id", sess.ID)
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error(r.Context(), "request", args...)
			case status >= http.StatusBadRequest:
				logger.Warn(r.Context(), "request", args...)
			default:
				logger.Info(r.Context(), "request", args...)
			}
		})
	}
}
