package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	CORS      CORSConfig
	Identity  IdentityConfig
	AI        AIConfig
	Billing   BillingConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	Ops       OpsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// IdentityConfig points at the identity provider's token-introspection endpoint.
type IdentityConfig struct {
	IntrospectionURL string
	APIKey           string
	Timeout          time.Duration
}

type AIConfig struct {
	APIKey         string
	AnalysisModel  string
	SynthesisModel string
}

// BillingConfig holds the server-known price of the pro plan (minor currency
// unit) and the free-tier monthly allowance.
type BillingConfig struct {
	ProPrice        int64
	FreeGenerations int
}

// GatewayConfig holds the payment gateway confirmation endpoint and the
// server-held Basic-auth key pair.
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type RateLimitConfig struct {
	GenerationPerMinute int
}

type OpsConfig struct {
	TokenSecret string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(k.String("cors.allowed.origins")),
		},
		Identity: IdentityConfig{
			IntrospectionURL: k.String("identity.introspection.url"),
			APIKey:           k.String("identity.api.key"),
		},
		AI: AIConfig{
			APIKey:         k.String("ai.api.key"),
			AnalysisModel:  k.String("ai.analysis.model"),
			SynthesisModel: k.String("ai.synthesis.model"),
		},
		Billing: BillingConfig{
			ProPrice:        k.Int64("billing.pro.price"),
			FreeGenerations: k.Int("billing.free.generations"),
		},
		Gateway: GatewayConfig{
			BaseURL:   k.String("gateway.base.url"),
			KeyID:     k.String("gateway.key.id"),
			KeySecret: k.String("gateway.key.secret"),
		},
		RateLimit: RateLimitConfig{
			GenerationPerMinute: k.Int("ratelimit.generation.per.minute"),
		},
		Ops: OpsConfig{
			TokenSecret: k.String("ops.token.secret"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "restyle"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "restyle"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.AI.AnalysisModel == "" {
		cfg.AI.AnalysisModel = "gemini-2.5-flash"
	}
	if cfg.AI.SynthesisModel == "" {
		cfg.AI.SynthesisModel = "gemini-2.5-flash-image"
	}
	if cfg.Billing.ProPrice == 0 {
		cfg.Billing.ProPrice = 19900
	}
	if cfg.Billing.FreeGenerations == 0 {
		cfg.Billing.FreeGenerations = 1
	}
	if cfg.RateLimit.GenerationPerMinute == 0 {
		cfg.RateLimit.GenerationPerMinute = 6
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse timeouts
	identityTimeout := k.String("identity.timeout")
	if identityTimeout == "" {
		identityTimeout = "10s"
	}
	cfg.Identity.Timeout, err = time.ParseDuration(identityTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing identity timeout: %w", err)
	}

	gatewayTimeout := k.String("gateway.timeout")
	if gatewayTimeout == "" {
		gatewayTimeout = "30s"
	}
	cfg.Gateway.Timeout, err = time.ParseDuration(gatewayTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing gateway timeout: %w", err)
	}

	return cfg, nil
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
