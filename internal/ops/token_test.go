package ops

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ops-secret-at-least-32-chars-long!!!"

func TestTokenManager(t *testing.T) {
	mgr := NewTokenManager(testSecret)

	t.Run("generate and validate", func(t *testing.T) {
		token, err := mgr.Generate("billing-recon")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := mgr.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "billing-recon", claims.Service)
		assert.Equal(t, "restyle", claims.Issuer)
	})

	t.Run("garbage token fails", func(t *testing.T) {
		_, err := mgr.Validate("not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("token signed with another secret fails", func(t *testing.T) {
		other := NewTokenManager("different-secret-also-32-chars!!!!!!")
		token, err := other.Generate("billing-recon")
		require.NoError(t, err)

		_, err = mgr.Validate(token)
		assert.Error(t, err)
	})

	t.Run("empty secret disables the manager", func(t *testing.T) {
		assert.False(t, NewTokenManager("").Enabled())
		assert.True(t, mgr.Enabled())
	})
}

func TestRequireServiceToken(t *testing.T) {
	mgr := NewTokenManager(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guard := RequireServiceToken(mgr)(next)

	t.Run("valid token passes", func(t *testing.T) {
		token, err := mgr.Generate("billing-recon")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/ops/reconciliation", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ops/reconciliation", nil)
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forged token is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ops/reconciliation", nil)
		req.Header.Set("Authorization", "Bearer forged.token.value")
		rec := httptest.NewRecorder()
		guard.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled manager hides the surface", func(t *testing.T) {
		disabled := RequireServiceToken(NewTokenManager(""))(next)
		req := httptest.NewRequest("GET", "/ops/reconciliation", nil)
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
