package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/pkg/utils"
)

func TestJWTRoundtrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24)

	token, err := svc.Generate(RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 24).Generate(RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 24).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 24).Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newLoginRouter(t *testing.T, password string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash := ""
	if password != "" {
		var err error
		hash, err = utils.HashPassword(password)
		require.NoError(t, err)
	}
	h := NewHandler(NewJWTService("test-secret", 24), config.AdminConfig{PasswordHash: hash}, nil)
	r := gin.New()
	r.POST("/admin/login", h.Login)
	return r
}

func postLogin(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesAdminToken(t *testing.T) {
	r := newLoginRouter(t, "hunter2")

	w := postLogin(r, `{"password":"hunter2"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)

	claims, err := NewJWTService("test-secret", 24).Validate(env.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r := newLoginRouter(t, "hunter2")
	w := postLogin(r, `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsMissingPassword(t *testing.T) {
	r := newLoginRouter(t, "hunter2")
	w := postLogin(r, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginUnavailableWhenUnconfigured(t *testing.T) {
	r := newLoginRouter(t, "")
	w := postLogin(r, `{"password":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
