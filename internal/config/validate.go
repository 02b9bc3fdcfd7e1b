package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// External service credentials
	if c.Identity.IntrospectionURL == "" {
		errs = append(errs, "IDENTITY_INTROSPECTION_URL is required")
	}
	if c.Identity.APIKey == "" {
		errs = append(errs, "IDENTITY_API_KEY is required")
	}
	if c.AI.APIKey == "" {
		errs = append(errs, "AI_API_KEY is required")
	}
	if c.Gateway.BaseURL == "" {
		errs = append(errs, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.KeyID == "" || c.Gateway.KeySecret == "" {
		errs = append(errs, "GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Billing sanity
	if c.Billing.ProPrice <= 0 {
		errs = append(errs, fmt.Sprintf("BILLING_PRO_PRICE must be positive, got %d", c.Billing.ProPrice))
	}
	if c.Billing.FreeGenerations < 0 {
		errs = append(errs, fmt.Sprintf("BILLING_FREE_GENERATIONS must be >= 0, got %d", c.Billing.FreeGenerations))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Ops token secret: warn only, the ops surface is optional
	if c.Ops.TokenSecret == "" {
		slog.Warn("OPS_TOKEN_SECRET is empty, reconciliation endpoint disabled")
	} else if len(c.Ops.TokenSecret) < 32 {
		errs = append(errs, "OPS_TOKEN_SECRET must be at least 32 characters")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
