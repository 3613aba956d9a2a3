package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey locates the request id in the request
// context.
const RequestIDKey contextKey = "request_id"

// RequestIDMiddleware assigns every request a UUID and
// echoes it in the X-Request-Id response header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			id := uuid.NewString()

			w.Header().Set("X-Request-Id", id)

			ctx := context.WithValue(
				r.Context(), RequestIDKey, id,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware enforces the optional shared secret.
// When a secret is configured, requests must carry an
// exactly matching bearer credential; the check runs
// before any other processing so an unauthorized
// request never reaches validation.
func AuthMiddleware(
	secret string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			if secret == "" {
				next.ServeHTTP(w, r)

				return
			}

			auth := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(
				auth, "Bearer ",
			)
			if !ok || token != secret {
				writeFailure(
					w,
					CodeUnauthorized,
					"invalid or missing credential",
					"",
				)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request with the
// response status and duration.
func LoggingMiddleware(
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			start := time.Now()

			wrapped := &statusWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().
				Value(RequestIDKey).(string)

			logger.Info(
				"http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms",
				time.Since(start).Milliseconds(),
				"request_id", requestID,
			)
		})
	}
}

// RecoveryMiddleware turns handler panics into 500
// responses instead of dropped connections.
func RecoveryMiddleware(
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID, _ := r.Context().
						Value(RequestIDKey).(string)

					logger.Error(
						"panic recovered",
						"error", rec,
						"request_id", requestID,
					)

					writeFailure(
						w,
						"internal_error",
						"internal server error",
						"",
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
