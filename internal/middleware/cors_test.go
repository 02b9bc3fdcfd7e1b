package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/cors"
)

func originChain(allowedOrigins []string, handlerRan *bool) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*handlerRan = true
		w.WriteHeader(http.StatusOK)
	})
	return OriginGuard(allowedOrigins)(cors.Handler(CORS(allowedOrigins))(inner))
}

func TestOriginGuard_UnlistedOriginRejected(t *testing.T) {
	allowed := []string{"http://app.example.com"}

	for _, method := range []string{http.MethodOptions, http.MethodPost} {
		handlerRan := false
		chain := originChain(allowed, &handlerRan)

		req := httptest.NewRequest(method, "/api/v1/generations", nil)
		req.Header.Set("Origin", "http://evil.example")
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", "POST")
		}
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for unlisted origin, got %d", method, rec.Code)
		}
		if acao := rec.Header().Get("Access-Control-Allow-Origin"); acao != "" {
			t.Fatalf("%s: expected no Access-Control-Allow-Origin header, got %q", method, acao)
		}
		if handlerRan {
			t.Fatalf("%s: handler must not run for an unlisted origin", method)
		}
	}
}

func TestOriginGuard_ListedOriginServed(t *testing.T) {
	allowed := []string{"http://app.example.com"}
	handlerRan := false
	chain := originChain(allowed, &handlerRan)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", nil)
	req.Header.Set("Origin", "http://app.example.com")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for listed origin, got %d", rec.Code)
	}
	if acao := rec.Header().Get("Access-Control-Allow-Origin"); acao != "http://app.example.com" {
		t.Fatalf("expected echoed Access-Control-Allow-Origin, got %q", acao)
	}
	if !handlerRan {
		t.Fatal("handler did not run for a listed origin")
	}
}

func TestOriginGuard_NoOriginHeaderPasses(t *testing.T) {
	handlerRan := false
	chain := originChain([]string{"http://app.example.com"}, &handlerRan)

	// Server-to-server callers send no Origin; identity still gates them.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !handlerRan {
		t.Fatalf("expected pass-through without Origin header, got %d", rec.Code)
	}
}

func TestOriginGuard_WildcardAllowsAnyOrigin(t *testing.T) {
	handlerRan := false
	chain := originChain([]string{"*"}, &handlerRan)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !handlerRan {
		t.Fatalf("expected wildcard to admit any origin, got %d", rec.Code)
	}
}
