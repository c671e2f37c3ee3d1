package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SigningKey: []byte("test-signing-key-1234567890123456"),
		Issuer:     DefaultIssuer,
		ExpiresIn:  time.Hour,
	}
}

func TestJWTConfigValidateToken_Success(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := GenerateToken(cfg, "u-1", "alice")
	require.NoError(t, err)

	claims, err := cfg.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.NotBefore)
}

func TestJWTConfigValidateToken_RejectsInvalidIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := GenerateToken(cfg, "u-1", "alice")
	require.NoError(t, err)

	other := JWTConfig{SigningKey: cfg.SigningKey, Issuer: "other-issuer"}
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTConfigValidateToken_RejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpiresIn = -time.Minute
	token, _, err := GenerateToken(cfg, "u-1", "alice")
	require.NoError(t, err)

	_, err = cfg.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTConfigValidateToken_MissingKey(t *testing.T) {
	token, _, err := GenerateToken(testJWTConfig(), "u-1", "alice")
	require.NoError(t, err)

	_, err = JWTConfig{Issuer: DefaultIssuer}.ValidateToken(token)
	assert.ErrorIs(t, err, ErrJWTSigningKeyMissing)
}

func TestJWTAuth(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := GenerateToken(cfg, "u-7", "bob")
	require.NoError(t, err)

	router := gin.New()
	router.Use(JWTAuth(cfg))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, GetUsername(c.Request.Context()))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "bob"},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK, wantBody: "bob"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, w.Body.String())
			} else {
				require.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}
