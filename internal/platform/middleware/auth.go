package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/httputil"
	"mintpress/pkg/requestcontext"
)

// TokenValidator resolves a bearer token into the caller's account address.
type TokenValidator interface {
	ValidateToken(tokenString string) (domain.Address, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller address in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthenticated request - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing or invalid Authorization header"))
				return
			}

			account, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccount(ctx, account)))
		})
	}
}
