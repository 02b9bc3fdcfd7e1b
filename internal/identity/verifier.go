package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/config"
)

// Identity is the result of a successful verification. Token is the raw
// bearer credential, carried along for callers that audit or forward it.
type Identity struct {
	UID   string
	Token string
}

// Verifier resolves a raw Authorization header value to a stable user
// identifier. Implementations must collapse every failure mode into
// api.ErrUnauthenticated so callers cannot distinguish why a credential was
// rejected.
type Verifier interface {
	Verify(ctx context.Context, authorizationHeader string) (*Identity, error)
}

// HTTPVerifier verifies bearer tokens against the identity provider's
// token-introspection endpoint. Every request re-verifies: no caching, no
// retries.
type HTTPVerifier struct {
	introspectionURL string
	apiKey           string
	client           *http.Client
}

func NewHTTPVerifier(cfg config.IdentityConfig) *HTTPVerifier {
	return &HTTPVerifier{
		introspectionURL: cfg.IntrospectionURL,
		apiKey:           cfg.APIKey,
		client:           &http.Client{Timeout: cfg.Timeout},
	}
}

type introspectionRequest struct {
	Token string `json:"token"`
}

type introspectionResponse struct {
	UserID string `json:"user_id"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, authorizationHeader string) (*Identity, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, api.ErrUnauthenticated
	}

	if v.introspectionURL == "" || v.apiKey == "" {
		slog.Error("identity verifier is missing introspection URL or API key")
		return nil, api.ErrServerMisconfigured
	}

	body, err := json.Marshal(introspectionRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshaling introspection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.introspectionURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		// Transport failures collapse into the same result as a bad
		// token: the caller learns nothing about the cause.
		slog.Warn("identity introspection call failed", "error", err)
		return nil, api.ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, api.ErrUnauthenticated
	}

	var out introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Warn("identity introspection returned unreadable body", "error", err)
		return nil, api.ErrUnauthenticated
	}
	if out.UserID == "" {
		return nil, api.ErrUnauthenticated
	}

	return &Identity{UID: out.UserID, Token: token}, nil
}

// bearerToken extracts the credential from "Bearer <token>". Returns false
// for an absent header, a non-bearer scheme, or an empty credential.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

var _ Verifier = (*HTTPVerifier)(nil)
