package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/jwt"
)

const testSecret = "test-secret"

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		claims, _ := jwt.GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Sub, "role": claims.Role})
	})
	return r
}

func do(t *testing.T, r http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", http.NoBody)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	valid, err := jwt.Sign(testSecret, "user-1", "CREATOR", time.Hour)
	require.NoError(t, err)
	expired, err := jwt.Sign(testSecret, "user-1", "CREATOR", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := jwt.Sign("other", "user-1", "CREATOR", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	r := newRouter(jwt.Middleware(testSecret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := do(t, r, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMiddleware_StoresClaims(t *testing.T) {
	t.Parallel()

	token, err := jwt.Sign(testSecret, "user-9", "SUPER_ADMIN", time.Hour)
	require.NoError(t, err)

	w := do(t, newRouter(jwt.Middleware(testSecret)), "Bearer "+token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sub":"user-9","role":"SUPER_ADMIN"}`, w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	creator, err := jwt.Sign(testSecret, "u", "CREATOR", time.Hour)
	require.NoError(t, err)
	system, err := jwt.Sign(testSecret, "cron", "SYSTEM", time.Hour)
	require.NoError(t, err)

	r := newRouter(jwt.Middleware(testSecret), jwt.RequireRoles("SUPER_ADMIN", "SYSTEM"))

	assert.Equal(t, http.StatusForbidden, do(t, r, "Bearer "+creator).Code)
	assert.Equal(t, http.StatusOK, do(t, r, "Bearer "+system).Code)
}

func TestRequireRoles_WithoutClaims(t *testing.T) {
	t.Parallel()

	w := do(t, newRouter(jwt.RequireRoles("CREATOR")), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParse_RejectsEmptySubject(t *testing.T) {
	t.Parallel()

	token, err := jwt.Sign(testSecret, "", "CREATOR", time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse(token, testSecret)
	require.ErrorIs(t, err, jwt.ErrInvalidToken)
}
