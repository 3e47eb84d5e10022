package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/httputil"
	"mintpress/pkg/requestcontext"
)

// RequireAdminToken guards operator endpoints with a shared X-Admin-Token.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
