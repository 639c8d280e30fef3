package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func signTestToken(t *testing.T, role string, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := &AdminClaims{
		UserID: 1,
		Email:  "admin@example.org",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runRequireAdmin(t *testing.T, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/otp/stats", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}

	nextCalled := false
	m := NewAuthMiddleware(testSecret)
	m.RequireAdmin()(c)
	if !c.IsAborted() {
		nextCalled = true
	}
	return w, nextCalled
}

func TestRequireAdmin_ValidAdminToken(t *testing.T) {
	token := signTestToken(t, "admin", testSecret, time.Hour)
	w, nextCalled := runRequireAdmin(t, "Bearer "+token)

	assert.True(t, nextCalled)
	assert.NotEqual(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_NonAdminRole(t *testing.T) {
	token := signTestToken(t, "agent", testSecret, time.Hour)
	w, nextCalled := runRequireAdmin(t, "Bearer "+token)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAdmin_MissingHeader(t *testing.T) {
	w, nextCalled := runRequireAdmin(t, "")

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_MalformedHeader(t *testing.T) {
	w, nextCalled := runRequireAdmin(t, "Token abc")

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_WrongSecret(t *testing.T) {
	token := signTestToken(t, "admin", "other-secret", time.Hour)
	w, nextCalled := runRequireAdmin(t, "Bearer "+token)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin_ExpiredToken(t *testing.T) {
	token := signTestToken(t, "admin", testSecret, -time.Hour)
	w, nextCalled := runRequireAdmin(t, "Bearer "+token)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
