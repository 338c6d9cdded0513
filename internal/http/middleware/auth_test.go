package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/internal/domain"
)

const testSecret = "unit-test-secret"

func newAuthRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/secure", Auth(testSecret), RequireRoles(roles...), func(c *gin.Context) {
		p := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.UserID, "role": p.Role, "name": p.Name})
	})
	return r
}

func doSecure(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidTokenExposesPrincipal(t *testing.T) {
	token, err := IssueToken(testSecret, time.Hour, 42, domain.RoleDispatcher, "Sari", time.Now())
	require.NoError(t, err)

	w := doSecure(newAuthRouter(domain.RoleAdmin, domain.RoleDispatcher), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42,"role":"dispatcher","name":"Sari"}`, w.Body.String())
}

func TestAuth_RejectsMissingExpiredAndForeignTokens(t *testing.T) {
	r := newAuthRouter(domain.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, doSecure(r, "").Code)

	expired, err := IssueToken(testSecret, time.Minute, 1, domain.RoleAdmin, "A", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doSecure(r, expired).Code)

	foreign, err := IssueToken("other-secret", time.Hour, 1, domain.RoleAdmin, "A", time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doSecure(r, foreign).Code)
}

func TestRequireRoles_ForbidsOtherRoles(t *testing.T) {
	token, err := IssueToken(testSecret, time.Hour, 7, domain.RoleDriver, "Budi", time.Now())
	require.NoError(t, err)

	w := doSecure(newAuthRouter(domain.RoleAdmin, domain.RoleAccountant), token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "role tidak diizinkan")
}

func TestRequestID_HonoursIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}
