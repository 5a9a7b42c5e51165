package incomplete

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengahacks/backend/internal/models"
)

type fakeStore struct {
	upserted  *models.IncompleteRegistration
	upsertErr error

	completedEmail    string
	completedWhatsapp string
	completedCount    int64

	listItems []*models.IncompleteRegistration
	listTotal int
	lastLimit int
	lastOff   int
}

func (f *fakeStore) Upsert(_ context.Context, entry *models.IncompleteRegistration) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	entry.ID = uuid.New()
	f.upserted = entry
	return nil
}

func (f *fakeStore) CompleteByContact(_ context.Context, email, whatsapp string) (int64, error) {
	f.completedEmail = email
	f.completedWhatsapp = whatsapp
	return f.completedCount, nil
}

func (f *fakeStore) List(_ context.Context, limit, offset int) ([]*models.IncompleteRegistration, int, error) {
	f.lastLimit = limit
	f.lastOff = offset
	return f.listItems, f.listTotal, nil
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func newRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.POST("/incomplete-registrations", h.Log)
	r.POST("/incomplete-registrations/complete", h.Complete)
	r.GET("/admin/incomplete-registrations", h.List)
	return r
}

func do(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent/1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestLogCapturesPartialForm(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	w, env := do(r, http.MethodPost, "/incomplete-registrations", `{
		"email": " Jane@Example.com ",
		"full_name": "Jane",
		"form_data": {"step": 2}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	assert.NotEmpty(t, env.Data["id"])

	require.NotNil(t, store.upserted)
	require.NotNil(t, store.upserted.Email)
	assert.Equal(t, "jane@example.com", *store.upserted.Email)
	require.NotNil(t, store.upserted.IPAddress)
	require.NotNil(t, store.upserted.UserAgent)
	assert.Equal(t, "test-agent/1.0", *store.upserted.UserAgent)
	assert.JSONEq(t, `{"step": 2}`, string(store.upserted.FormSnapshot))
}

func TestLogAcceptsWhatsappOnly(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	w, _ := do(r, http.MethodPost, "/incomplete-registrations", `{"whatsapp_number": "+254 712 345 678"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.upserted)
	assert.Nil(t, store.upserted.Email)
	require.NotNil(t, store.upserted.WhatsappNumber)
	assert.Equal(t, "+254712345678", *store.upserted.WhatsappNumber)
}

func TestLogRejectsMissingContact(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	w, env := do(r, http.MethodPost, "/incomplete-registrations", `{"full_name": "Jane"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Nil(t, store.upserted)
}

func TestCompleteFlipsAllMatches(t *testing.T) {
	store := &fakeStore{completedCount: 2}
	r := newRouter(store)

	w, env := do(r, http.MethodPost, "/incomplete-registrations/complete", `{"email": "jane@example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), env.Data["completed"])
	assert.Equal(t, "jane@example.com", store.completedEmail)
}

func TestCompleteRejectsMissingContact(t *testing.T) {
	r := newRouter(&fakeStore{})

	w, _ := do(r, http.MethodPost, "/incomplete-registrations/complete", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPagination(t *testing.T) {
	store := &fakeStore{listTotal: 120}
	r := newRouter(store)

	w, env := do(r, http.MethodGet, "/admin/incomplete-registrations?page=3&per_page=20", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, store.lastLimit)
	assert.Equal(t, 40, store.lastOff)
	assert.Equal(t, float64(120), env.Data["total"])
	assert.Equal(t, float64(3), env.Data["page"])
}

func TestListClampsBadPagination(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	w, _ := do(r, http.MethodGet, "/admin/incomplete-registrations?page=0&per_page=9999", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, store.lastLimit)
	assert.Equal(t, 0, store.lastOff)
}
