package ops

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/restyle-platform/restyle/internal/api"
)

// RequireServiceToken guards the ops routes. When no secret is
// configured the whole surface is disabled rather than left open.
func RequireServiceToken(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokens.Enabled() {
				api.HandleError(w, api.ErrNotFound)
				return
			}

			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				api.HandleError(w, api.ErrUnauthenticated)
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				slog.Warn("rejecting ops request", "error", err)
				api.HandleError(w, api.ErrUnauthenticated)
				return
			}

			slog.Debug("ops request", "service", claims.Service, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
