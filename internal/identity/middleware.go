package identity

import (
	"context"
	"net/http"

	"github.com/restyle-platform/restyle/internal/api"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware verifies the bearer credential on every request and stores the
// resolved identity in the request context. No downstream handler runs for an
// unverified caller.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				api.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), ident)))
		})
	}
}

// NewContext stores a verified identity for FromContext to find.
func NewContext(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// FromContext returns the verified identity, or nil outside the middleware.
func FromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityKey).(*Identity)
	return ident
}
