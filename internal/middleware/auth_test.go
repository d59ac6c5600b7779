package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	am := NewAuthMiddleware(secret)
	router.DELETE("/admin/history", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return router
}

func TestRequireAuthMissingHeader(t *testing.T) {
	router := newAuthRouter("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header required")
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	router := newAuthRouter("test-secret")

	for _, header := range []string{"Bearer", "Basic abc123", "Bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/admin/history", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q should be rejected", header)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	router := newAuthRouter("test-secret")
	am := NewAuthMiddleware("test-secret")

	token, err := am.GenerateToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin-1")
}

func TestRequireAuthExpiredToken(t *testing.T) {
	router := newAuthRouter("test-secret")
	am := NewAuthMiddleware("test-secret")

	token, err := am.GenerateToken("admin-1", "admin@example.com", -time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestRequireAuthWrongSecret(t *testing.T) {
	router := newAuthRouter("test-secret")
	other := NewAuthMiddleware("other-secret")

	token, err := other.GenerateToken("admin-1", "admin@example.com", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}
