package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/config"
)

// GatewayResult is what the gateway itself reports for a captured
// payment. Amount is authoritative and is re-checked against the
// server-known price after capture.
type GatewayResult struct {
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// Gateway confirms a payment with the upstream provider.
type Gateway interface {
	Confirm(ctx context.Context, paymentReference, orderReference string, amount int64) (*GatewayResult, error)
}

type httpGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHTTPGateway(cfg config.GatewayConfig) Gateway {
	return &httpGateway{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *httpGateway) Confirm(ctx context.Context, paymentReference, orderReference string, amount int64) (*GatewayResult, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"order_id": orderReference,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding capture request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payments/%s/capture", g.baseURL, paymentReference)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, api.NewUpstreamError(http.StatusBadGateway, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, api.NewUpstreamError(http.StatusBadGateway, "reading payment gateway response")
	}

	// A gateway rejection keeps its own status code on the way out.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, api.NewUpstreamError(resp.StatusCode, "payment gateway rejected the confirmation")
	}

	var result GatewayResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, api.NewUpstreamError(http.StatusBadGateway, "malformed payment gateway response")
	}
	return &result, nil
}
