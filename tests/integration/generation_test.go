//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doGeneration(t *testing.T, env *TestEnv, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("roomImage", "room.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, err)
	require.NoError(t, w.WriteField("style", "scandinavian"))
	require.NoError(t, w.Close())

	req, err := http.NewRequest("POST", env.Server.URL+"/api/v1/generations", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestGeneration_HappyPath(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("gen-happy-%d", uniqueID()))

	resp := doGeneration(t, env, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	assert.NotEmpty(t, result["generatedImage"])

	analysis, ok := result["analysis"].(map[string]any)
	require.True(t, ok)
	changes, ok := analysis["changes"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, changes)
}

func TestGeneration_FreeAllowanceExhausted(t *testing.T) {
	env := SetupTestEnv(t)
	token := UserToken(fmt.Sprintf("gen-quota-%d", uniqueID()))

	resp := doGeneration(t, env, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The allowance is one per month: the second attempt is denied.
	resp = doGeneration(t, env, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Contains(t, result["error"], "limit")
}

func TestGeneration_Unauthenticated(t *testing.T) {
	env := SetupTestEnv(t)

	resp := doGeneration(t, env, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// A token the provider does not know gets the same answer.
	resp = doGeneration(t, env, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	result := ParseResponse(t, resp)
	assert.Equal(t, "unauthorized", result["error"])
}

func TestGeneration_ProIsUnmetered(t *testing.T) {
	env := SetupTestEnv(t)
	uid := fmt.Sprintf("gen-pro-%d", uniqueID())
	token := UserToken(uid)

	confirmPayment(t, env, token, fmt.Sprintf("pay_pro_%d", uniqueID()))

	for i := 0; i < 3; i++ {
		resp := doGeneration(t, env, token)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "generation %d", i+1)
		resp.Body.Close()
	}
}
