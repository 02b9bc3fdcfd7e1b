//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/genai"

	"github.com/restyle-platform/restyle/internal/account"
	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/config"
	"github.com/restyle-platform/restyle/internal/entitlement"
	"github.com/restyle-platform/restyle/internal/generation"
	"github.com/restyle-platform/restyle/internal/identity"
	"github.com/restyle-platform/restyle/internal/ops"
	"github.com/restyle-platform/restyle/internal/payments"
	"github.com/restyle-platform/restyle/internal/profiles"
)

const (
	testProPrice        int64 = 19900
	testFreeGenerations       = 1
	testOpsSecret             = "integration-ops-secret-32-chars!!!!!"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	OpsTokens   *ops.TokenManager
}

var testEnv *TestEnv

// fakeModel stands in for the Gemini API: the analysis model answers with a
// JSON plan, the synthesis model with an inline image.
type fakeModel struct{}

func (fakeModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "analysis-model" {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: `{"changes":["repaint walls"],"style":"modern","estimatedMaterials":["paint"]}`},
				}},
			}},
		}, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}},
			}},
		}},
	}, nil
}

// startIdentityProvider serves the token-introspection contract: tokens of
// the form "valid-<uid>" resolve, anything else is rejected.
func startIdentityProvider(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		uid, ok := strings.CutPrefix(req.Token, "valid-")
		if !ok || uid == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"user_id": uid})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// startPaymentGateway echoes captures. References with the "pay_reject_"
// prefix are declined; "pay_short_" captures 100 less than requested.
func startPaymentGateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "v1" || parts[1] != "payments" || parts[3] != "capture" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		ref := parts[2]
		var req struct {
			Amount  int64  `json:"amount"`
			OrderID string `json:"order_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch {
		case strings.HasPrefix(ref, "pay_reject_"):
			w.WriteHeader(http.StatusUnprocessableEntity)
		case strings.HasPrefix(ref, "pay_short_"):
			json.NewEncoder(w).Encode(map[string]any{"amount": req.Amount - 100, "status": "captured"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"amount": req.Amount, "status": "captured"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "restyle_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/restyle_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Fake external services
	idProvider := startIdentityProvider(t)
	gatewaySrv := startPaymentGateway(t)

	verifier := identity.NewHTTPVerifier(config.IdentityConfig{
		IntrospectionURL: idProvider.URL,
		APIKey:           "test-id-key",
		Timeout:          5 * time.Second,
	})

	profileRepo := profiles.NewRepository(pool)
	meter := entitlement.NewService(profileRepo, testFreeGenerations)
	auditRepo := audit.NewPostgresRepository(pool)
	auditor := audit.NewPublisher(nil) // no NATS in these tests

	aiCfg := config.AIConfig{
		APIKey:         "test-ai-key",
		AnalysisModel:  "analysis-model",
		SynthesisModel: "synthesis-model",
	}
	generationSvc := generation.NewService(fakeModel{}, aiCfg)
	generationHandler := generation.NewHandler(generationSvc, profileRepo, meter, auditor)

	gateway := payments.NewHTTPGateway(config.GatewayConfig{
		BaseURL:   gatewaySrv.URL,
		KeyID:     "test-key-id",
		KeySecret: "test-key-secret",
		Timeout:   5 * time.Second,
	})
	paymentRepo := payments.NewRepository(pool)
	paymentSvc := payments.NewService(gateway, paymentRepo, profileRepo, auditor,
		config.BillingConfig{ProPrice: testProPrice, FreeGenerations: testFreeGenerations})
	paymentHandler := payments.NewHandler(paymentSvc)

	accountHandler := account.NewHandler(profileRepo, meter, auditRepo)

	opsTokens := ops.NewTokenManager(testOpsSecret)
	opsHandler := ops.NewHandler(paymentRepo)

	router := api.NewRouter(pool, nil, api.RouterConfig{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}, api.HandlerSet{
		Generate: generationHandler.Generate,

		ConfirmPayment: paymentHandler.Confirm,

		GetProfile: accountHandler.GetProfile,
		GetUsage:   accountHandler.GetUsage,
		GetPlan:    accountHandler.GetPlan,
		ListAudit:  accountHandler.ListAudit,

		ListReconciliation: opsHandler.ListReconciliation,

		IdentityMiddleware: identity.Middleware(verifier),
		OpsMiddleware:      ops.RequireServiceToken(opsTokens),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		OpsTokens:   opsTokens,
	}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

var idCounter atomic.Int64

func uniqueID() int64 {
	return idCounter.Add(1)
}

// UserToken returns a bearer credential the fake identity provider accepts
// for the given uid.
func UserToken(uid string) string {
	return "valid-" + uid
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
