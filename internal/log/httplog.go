package log

import (
	"context"
	"fmt"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the ID assigned by RequestID, or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID assigns every request an ID, reusing a well-formed incoming X-Request-ID
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// HTTPLogger logs one entry per request with status, duration and size. Server errors are
// logged at error level.
func HTTPLogger(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = GetSugaredLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"duration_ms", m.Duration.Milliseconds(),
				"size", m.Written,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}
			if id := RequestIDFromContext(r.Context()); id != "" {
				fields = append(fields, "request_id", id)
			}

			msg := fmt.Sprintf("%s %s %d", r.Method, r.URL.Path, m.Code)
			if m.Code >= http.StatusInternalServerError {
				logger.Errorw(msg, fields...)
			} else {
				logger.Infow(msg, fields...)
			}
		})
	}
}

// RecoveryLogger adapts a zap logger to the Println logger expected by panic recovery
// middleware.
type RecoveryLogger struct {
	Logger *zap.SugaredLogger
}

func (l RecoveryLogger) Println(args ...interface{}) {
	logger := l.Logger
	if logger == nil {
		logger = GetSugaredLogger()
	}
	logger.Errorw("recovered from panic", "panic", fmt.Sprint(args...))
}
