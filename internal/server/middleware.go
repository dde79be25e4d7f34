package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/metrics"
	"github.com/splitledger/splitledger/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userIDKey contextKey = "user_id"

// actorFromContext extracts the authenticated actor's member reference.
// Zero if the request is unauthenticated.
func actorFromContext(ctx context.Context) models.MemberRef {
	id, _ := ctx.Value(userIDKey).(string)
	if id == "" {
		return models.MemberRef{}
	}
	return models.MemberByID(id)
}

// requireAuth validates the bearer token and stores the user ID in the
// request context. Requests without a valid token get 401.
func requireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, auth.ErrMissingToken)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
				return
			}

			claims, err := jwtManager.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs every request and records its latency histogram.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		elapsed := time.Since(start)
		metrics.RequestDuration.WithLabelValues(
			r.Method, route, strconv.Itoa(ww.Status()),
		).Observe(elapsed.Seconds())

		slog.Info("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}
