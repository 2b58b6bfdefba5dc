package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/pkg/registry"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID reuses an inbound X-Request-ID or assigns a uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id set by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithAgentSpec makes spec available to every handler through the context.
func WithAgentSpec(spec *registry.AgentSpec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if spec != nil {
				r = r.WithContext(registry.WithSpec(r.Context(), spec))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog writes one structured line per request.
func AccessLog(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := map[string]interface{}{
				"requestId": RequestIDFromContext(r.Context()),
				"method":    r.Method,
				"path":      r.URL.Path,
				"status":    ww.Status(),
				"bytes":     ww.BytesWritten(),
				"duration":  time.Since(start).String(),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("http request", fields)
				return
			}
			log.Debug("http request", fields)
		})
	}
}
