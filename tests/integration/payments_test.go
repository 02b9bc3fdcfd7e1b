//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmPayment(t *testing.T, env *TestEnv, token, reference string) map[string]any {
	t.Helper()
	body := map[string]any{
		"paymentReference": reference,
		"orderReference":   "order_" + reference,
		"amount":           testProPrice,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return ParseResponse(t, resp)
}

func TestPayments_ConfirmActivatesPro(t *testing.T) {
	env := SetupTestEnv(t)
	uid := fmt.Sprintf("pay-happy-%d", uniqueID())
	token := UserToken(uid)

	result := confirmPayment(t, env, token, fmt.Sprintf("pay_ok_%d", uniqueID()))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "pro", result["plan"])
	assert.NotEmpty(t, result["endDate"])

	// The plan endpoint now reports pro
	resp := DoRequest(t, env, "GET", "/api/v1/account/plan", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := ParseResponse(t, resp)
	assert.Equal(t, "pro", plan["plan"])
	assert.NotEmpty(t, plan["endDate"])
}

func TestPayments_WrongAmountRejected(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("pay-amount-%d", uniqueID()))

	body := map[string]any{
		"paymentReference": fmt.Sprintf("pay_cheap_%d", uniqueID()),
		"orderReference":   "order_cheap",
		"amount":           100,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm", body, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// The caller stays on the free plan.
	resp = DoRequest(t, env, "GET", "/api/v1/account/plan", nil, token)
	plan := ParseResponse(t, resp)
	assert.Equal(t, "free", plan["plan"])
}

func TestPayments_GatewayShortCaptureRejected(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("pay-short-%d", uniqueID()))

	body := map[string]any{
		"paymentReference": fmt.Sprintf("pay_short_%d", uniqueID()),
		"orderReference":   "order_short",
		"amount":           testProPrice,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm", body, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPayments_GatewayRejectionPassesThrough(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("pay-reject-%d", uniqueID()))

	body := map[string]any{
		"paymentReference": fmt.Sprintf("pay_reject_%d", uniqueID()),
		"orderReference":   "order_reject",
		"amount":           testProPrice,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm", body, token)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestPayments_ReplayedReferenceConflicts(t *testing.T) {
	env := SetupTestEnv(t)
	reference := fmt.Sprintf("pay_replay_%d", uniqueID())
	token := UserToken(fmt.Sprintf("pay-replay-a-%d", uniqueID()))

	confirmPayment(t, env, token, reference)

	// Same reference from a different account
	otherToken := UserToken(fmt.Sprintf("pay-replay-b-%d", uniqueID()))
	body := map[string]any{
		"paymentReference": reference,
		"orderReference":   "order_" + reference,
		"amount":           testProPrice,
	}
	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm", body, otherToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = DoRequest(t, env, "GET", "/api/v1/account/plan", nil, otherToken)
	plan := ParseResponse(t, resp)
	assert.Equal(t, "free", plan["plan"])
}

func TestPayments_MissingFieldsRejected(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("pay-fields-%d", uniqueID()))

	resp := DoRequest(t, env, "POST", "/api/v1/payments/confirm",
		map[string]any{"amount": testProPrice}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
