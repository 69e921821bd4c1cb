package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireUserType(t *testing.T) {
	okHandler := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}

	t.Run("allows matching type", func(t *testing.T) {
		c, rec := newTestContext(t)
		c.Set("userType", "manager")

		err := RequireUserType("manager")(okHandler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("allows any of several types", func(t *testing.T) {
		c, rec := newTestContext(t)
		c.Set("userType", "admin")

		err := RequireUserType("manager", "admin")(okHandler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects other types", func(t *testing.T) {
		c, rec := newTestContext(t)
		c.Set("userType", "user")

		err := RequireUserType("admin")(okHandler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects missing type", func(t *testing.T) {
		c, rec := newTestContext(t)

		err := RequireUserType("admin")(okHandler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGenerateJWTRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tokenString, refreshString, err := GenerateJWT("64f000000000000000000001", "manager@example.com", "manager")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	require.NotEmpty(t, refreshString)

	claims := &JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "64f000000000000000000001", claims.UserID)
	assert.Equal(t, "manager@example.com", claims.Email)
	assert.Equal(t, "manager", claims.UserType)
	assert.Greater(t, claims.ExpiresAt, time.Now().Unix())

	// Refresh token outlives the access token
	refreshClaims := &JwtCustomClaims{}
	_, err = jwt.ParseWithClaims(refreshString, refreshClaims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.Greater(t, refreshClaims.ExpiresAt, claims.ExpiresAt)
}

func TestTokenBlacklist(t *testing.T) {
	assert.False(t, IsTokenBlacklisted("some-token"))

	BlacklistToken("some-token", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("some-token"))
}

func TestExtractUserTypeFallsBackToClaims(t *testing.T) {
	c, _ := newTestContext(t)
	c.Set("user", &jwt.Token{Claims: &JwtCustomClaims{UserType: "admin"}})

	assert.Equal(t, "admin", ExtractUserType(c))
}
