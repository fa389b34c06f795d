package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listoapp/listo/internal/auth"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	// ownerIDKey is the context key for the authenticated owner ID.
	ownerIDKey ctxKey = "ownerID"
	// claimsKey holds the verified token claims.
	claimsKey ctxKey = "claims"
	// authErrKey holds why a presented token was refused.
	authErrKey ctxKey = "authErr"
)

// GetOwnerID returns the authenticated owner ID from context.
// Returns 401 if the request carried no valid token.
func GetOwnerID(ctx context.Context) (string, error) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	if ok && ownerID != "" {
		return ownerID, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok && err != nil {
		return "", err
	}
	return "", huma.Error401Unauthorized("Authentication required")
}

// getClaims returns the verified claims, or nil.
func getClaims(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(claimsKey).(*auth.AccessClaims)
	return claims
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the owner in context. Requests without a usable token continue anonymously;
// handlers use GetOwnerID to require authentication.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if tokens == nil || authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(strings.TrimSpace(authHeader[7:]))
			if err != nil {
				// Remember why, so an expired token is reported as such.
				ctx := context.WithValue(r.Context(), authErrKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDKey, claims.OwnerID)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
