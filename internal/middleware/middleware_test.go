package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengahacks/backend/internal/auth"
)

func corsRouter(allowed string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(allowed))
	r.POST("/registrations", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	r := corsRouter("https://jengahacks.example")

	req := httptest.NewRequest(http.MethodOptions, "/registrations", nil)
	req.Header.Set("Origin", "https://jengahacks.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://jengahacks.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSUnknownOriginGetsNoHeaders(t *testing.T) {
	r := corsRouter("https://jengahacks.example")

	req := httptest.NewRequest(http.MethodPost, "/registrations", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Enforcement is browser-side; the request itself still lands.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	r := corsRouter("*")

	req := httptest.NewRequest(http.MethodPost, "/registrations", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func adminRouter() (*gin.Engine, *auth.JWTService) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewJWTService("test-secret", 1)
	r := gin.New()
	r.GET("/admin/ping", JWT(svc), RequireRole(auth.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r, svc
}

func getWithAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAllowsAdminToken(t *testing.T) {
	r, svc := adminRouter()
	token, err := svc.Generate(auth.RoleAdmin)
	require.NoError(t, err)

	w := getWithAuth(r, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r, _ := adminRouter()

	w := getWithAuth(r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsWrongScheme(t *testing.T) {
	r, _ := adminRouter()

	w := getWithAuth(r, "Basic abc123")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsGarbageToken(t *testing.T) {
	r, _ := adminRouter()

	w := getWithAuth(r, "Bearer not-a-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleRejectsNonAdmin(t *testing.T) {
	r, svc := adminRouter()
	token, err := svc.Generate("viewer")
	require.NoError(t, err)

	w := getWithAuth(r, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
