package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const defaultOrigin = "http://localhost:3000"

// OriginGuard rejects any request whose Origin header is present but not on
// the allow-list, for the preflight and the main request alike. cors.Handler
// only withholds response headers and still runs the handler, so the actual
// rejection has to happen here: an unlisted origin gets 403 with no CORS
// headers and no handler run. Requests without an Origin header pass.
func OriginGuard(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !allowAll {
				if _, ok := allowed[strings.ToLower(origin)]; !ok {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":"origin not allowed"}`))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS returns cors.Options parameterized by the given allowed origins.
// Origins not on the list get no Access-Control-Allow-Origin header, so the
// browser blocks the response. If "*" is present, AllowCredentials is set to
// false (browsers reject Access-Control-Allow-Credentials: true with a
// wildcard origin).
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	allowCreds := true
	for _, o := range allowedOrigins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: allowCreds,
		MaxAge:           3600,
	}
}
