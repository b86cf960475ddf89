package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "volunteermatch/internal/delivery/http/helpers"
	"volunteermatch/internal/domain"
)

type contextKey string

const viewerKey contextKey = "viewer"

// WithViewer returns a context carrying the authenticated viewer. Used by the auth middleware.
func WithViewer(ctx context.Context, v *domain.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// ViewerFromContext returns the authenticated viewer from the context, if present.
func ViewerFromContext(ctx context.Context) (*domain.Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(*domain.Viewer)
	return v, ok && v != nil
}

// RequireAuth returns a wrapper that resolves the Bearer token and sets the viewer in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(resolver domain.ViewerResolver, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return authenticate(resolver, logger, true)
}

// OptionalAuth is like RequireAuth but lets requests without an Authorization header through
// anonymously. A header that is present must still carry a valid token.
func OptionalAuth(resolver domain.ViewerResolver, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return authenticate(resolver, logger, false)
}

func authenticate(resolver domain.ViewerResolver, logger *slog.Logger, required bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				if required {
					h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
					return
				}
				next(w, r)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			viewer, err := resolver.Resolve(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(WithViewer(r.Context(), viewer)))
		}
	}
}
