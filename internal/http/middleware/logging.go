package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/logger"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request ID in both directions
const HeaderRequestID = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging middleware logs HTTP requests. An incoming X-Request-ID is reused,
// otherwise one is generated; either way it is echoed on the response.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
				r.Header.Set(HeaderRequestID, requestID)
			}
			w.Header().Set(HeaderRequestID, requestID)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			reqLog := logger.WithRequest(log, r.Method, r.URL.Path, requestID)

			fields := []zap.Field{
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", rw.statusCode),
				zap.Int64("response_size", rw.written),
				zap.Duration("duration", duration),
			}
			if rangeToken := r.URL.Query().Get("range"); rangeToken != "" {
				fields = append(fields, zap.String("range", rangeToken))
			}

			msg := fmt.Sprintf("%s %-30s -> %3d (%s)",
				r.Method,
				r.URL.Path,
				rw.statusCode,
				duration.Truncate(time.Microsecond),
			)
			if rw.statusCode >= http.StatusInternalServerError {
				reqLog.Warn(msg, fields...)
				return
			}
			reqLog.Info(msg, fields...)
		})
	}
}

// Recovery turns a panic in a handler into a 500 problem response
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get(HeaderRequestID)),
					zap.ByteString("stack", debug.Stack()),
				}
				if userCtx, ok := auth.FromContext(r.Context()); ok {
					fields = append(fields, zap.String("identity", userCtx.Handle.String()))
				}
				log.Error("panic recovered", fields...)

				writeProblem(w, http.StatusInternalServerError, domain.ErrorTypeInternal, "An unexpected error occurred")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
