package captcha

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
)

func newTestRouter(verifyURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	v := NewVerifier(config.CaptchaConfig{
		Secret:     "test-secret",
		VerifyURL:  verifyURL,
		TimeoutSec: 2,
	}, nil)
	h := NewHandler(v, nil)
	r := gin.New()
	r.POST("/captcha/verify", h.Verify)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyRelaysProviderSuccess(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-secret", r.Form.Get("secret"))
		assert.Equal(t, "tok-123", r.Form.Get("response"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"score":0.9,"challenge_ts":"2026-02-01T10:00:00Z","hostname":"jengahacks.example"}`))
	}))
	defer provider.Close()

	w := postJSON(t, newTestRouter(provider.URL), "/captcha/verify", `{"token":"tok-123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 0.9, *res.Score, 0.0001)
	assert.Equal(t, "jengahacks.example", res.Hostname)
}

func TestVerifyRelaysProviderRejection(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer provider.Close()

	w := postJSON(t, newTestRouter(provider.URL), "/captcha/verify", `{"token":"bad"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorCodes, "invalid-input-response")
}

func TestVerifyMissingTokenFailsWithoutProviderCall(t *testing.T) {
	called := false
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer provider.Close()

	w := postJSON(t, newTestRouter(provider.URL), "/captcha/verify", `{"token":""}`)

	require.Equal(t, http.StatusOK, w.Code)
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.False(t, called)
}

func TestVerifyFailsClosedOnProviderOutage(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer provider.Close()

	w := postJSON(t, newTestRouter(provider.URL), "/captcha/verify", `{"token":"tok"}`)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
}

func TestVerifyFailsClosedWhenProviderUnreachable(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := provider.URL
	provider.Close()

	w := postJSON(t, newTestRouter(url), "/captcha/verify", `{"token":"tok"}`)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
}
