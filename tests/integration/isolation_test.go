//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every profile write is keyed by the verified uid, so one account's
// activity must never leak into another's record.

func TestIsolation_UsageCountersIndependent(t *testing.T) {
	env := SetupTestEnv(t)
	tokenA := UserToken(fmt.Sprintf("iso-usage-a-%d", uniqueID()))
	tokenB := UserToken(fmt.Sprintf("iso-usage-b-%d", uniqueID()))

	resp := doGeneration(t, env, tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A spent the allowance, B did not.
	resp = DoRequest(t, env, "GET", "/api/v1/account/usage", nil, tokenA)
	usage := ParseResponse(t, resp)
	assert.Equal(t, float64(0), usage["remaining"])

	resp = DoRequest(t, env, "GET", "/api/v1/account/usage", nil, tokenB)
	usage = ParseResponse(t, resp)
	assert.Equal(t, float64(testFreeGenerations), usage["remaining"])
}

func TestIsolation_SubscriptionStaysWithThePayer(t *testing.T) {
	env := SetupTestEnv(t)
	payerToken := UserToken(fmt.Sprintf("iso-sub-payer-%d", uniqueID()))
	otherToken := UserToken(fmt.Sprintf("iso-sub-other-%d", uniqueID()))

	confirmPayment(t, env, payerToken, fmt.Sprintf("pay_iso_%d", uniqueID()))

	resp := DoRequest(t, env, "GET", "/api/v1/account/plan", nil, payerToken)
	plan := ParseResponse(t, resp)
	assert.Equal(t, "pro", plan["plan"])

	resp = DoRequest(t, env, "GET", "/api/v1/account/plan", nil, otherToken)
	plan = ParseResponse(t, resp)
	assert.Equal(t, "free", plan["plan"])
}

func TestIsolation_AuditListIsOwnerScoped(t *testing.T) {
	env := SetupTestEnv(t)
	uidA := fmt.Sprintf("iso-audit-a-%d", uniqueID())
	uidB := fmt.Sprintf("iso-audit-b-%d", uniqueID())

	// Seed audit rows for A directly; no NATS runs in this suite.
	ctx := t.Context()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO audit_logs (owner_uid, event_type, severity, resource_type, occurred_at)
		VALUES ($1, 'generation.completed', 'info', 'generation', NOW())`, uidA)
	require.NoError(t, err)

	resp := DoRequest(t, env, "GET", "/api/v1/account/audit", nil, UserToken(uidA))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Equal(t, float64(1), result["total_count"])

	resp = DoRequest(t, env, "GET", "/api/v1/account/audit", nil, UserToken(uidB))
	result = ParseResponse(t, resp)
	assert.Equal(t, float64(0), result["total_count"])
}
