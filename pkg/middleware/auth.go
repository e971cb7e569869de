package middleware

import (
	"net/http"
	"strings"

	"stagebook/pkg/auth"
	apperrors "stagebook/pkg/errors"
	"stagebook/pkg/logger"
	"stagebook/pkg/model"
)

// Authenticate decodes the bearer token once and stores the Principal on the
// request context. Handlers read it with auth.FromContext.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				reject(w, log, apperrors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := auth.ParseValidate(secret, strings.TrimSpace(raw))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				reject(w, log, apperrors.Unauthorized("invalid token"))
				return
			}

			principal, err := claims.Principal()
			if err != nil {
				reject(w, log, apperrors.Unauthorized("invalid token claims"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func RequireRole(log *logger.Logger, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				reject(w, log, apperrors.Unauthorized("authentication required"))
				return
			}
			if !p.IsActive() {
				reject(w, log, apperrors.Forbidden("principal is not active"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			reject(w, log, apperrors.Forbidden("insufficient role"))
		})
	}
}
