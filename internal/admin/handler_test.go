package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/internal/models"
)

type fakeStore struct {
	items    []*models.Registration
	total    int
	byID     *models.Registration
	byIDErr  error
	stats    *models.RegistrationStats
	listErr  error
	captured ListFilter
}

func (f *fakeStore) List(_ context.Context, filter ListFilter) ([]*models.Registration, int, error) {
	f.captured = filter
	return f.items, f.total, f.listErr
}

func (f *fakeStore) GetByID(context.Context, uuid.UUID) (*models.Registration, error) {
	return f.byID, f.byIDErr
}

func (f *fakeStore) ExportAll(context.Context) ([]*models.Registration, error) {
	return f.items, f.listErr
}

func (f *fakeStore) Stats(_ context.Context, capacity int) (*models.RegistrationStats, error) {
	if f.stats != nil {
		f.stats.Capacity = capacity
	}
	return f.stats, f.listErr
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func newRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, config.RegistrationConfig{Capacity: 200}, nil)
	r := gin.New()
	r.GET("/admin/registrations", h.List)
	r.GET("/admin/registrations/export", h.Export)
	r.GET("/admin/registrations/:id", h.GetByID)
	r.GET("/admin/stats", h.Stats)
	return r
}

func doGet(r *gin.Engine, path string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func sampleRegistration(waitlist bool) *models.Registration {
	whatsapp := "+254712345678"
	return &models.Registration{
		ID:             uuid.New(),
		FullName:       "Jane Doe",
		Email:          "jane@example.com",
		WhatsappNumber: &whatsapp,
		IsWaitlist:     waitlist,
		CreatedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestListDefaults(t *testing.T) {
	store := &fakeStore{items: []*models.Registration{sampleRegistration(false)}, total: 1}
	r := newRouter(store)

	w, env := doGet(r, "/admin/registrations")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ListFilter{Limit: 50, Offset: 0}, store.captured)
	assert.Equal(t, float64(1), env.Data["total"])
	assert.Equal(t, float64(1), env.Data["page"])
	assert.Equal(t, float64(50), env.Data["per_page"])
}

func TestListAppliesFilters(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	w, _ := doGet(r, "/admin/registrations?search=jane&waitlist=true&page=3&per_page=10")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane", store.captured.Search)
	require.NotNil(t, store.captured.Waitlist)
	assert.True(t, *store.captured.Waitlist)
	assert.Equal(t, 10, store.captured.Limit)
	assert.Equal(t, 20, store.captured.Offset)
}

func TestListIgnoresBadPagination(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	doGet(r, "/admin/registrations?page=0&per_page=9999&waitlist=maybe")

	assert.Equal(t, 50, store.captured.Limit)
	assert.Equal(t, 0, store.captured.Offset)
	assert.Nil(t, store.captured.Waitlist)
}

func TestListSanitizesSearch(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(store)

	doGet(r, "/admin/registrations?search=%3Cscript%3Ejane")

	assert.Equal(t, "scriptjane", store.captured.Search)
}

func TestGetByID(t *testing.T) {
	reg := sampleRegistration(true)
	store := &fakeStore{byID: reg}
	r := newRouter(store)

	w, env := doGet(r, "/admin/registrations/"+reg.ID.String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reg.Email, env.Data["email"])
	assert.Equal(t, true, env.Data["is_waitlist"])
	// access tokens never leave through the dashboard
	assert.NotContains(t, w.Body.String(), "access_token")
}

func TestGetByIDInvalidUUID(t *testing.T) {
	r := newRouter(&fakeStore{})

	w, env := doGet(r, "/admin/registrations/not-a-uuid")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid registration id", env.Error)
}

func TestGetByIDNotFound(t *testing.T) {
	store := &fakeStore{byIDErr: ErrNotFound}
	r := newRouter(store)

	w, _ := doGet(r, "/admin/registrations/"+uuid.NewString())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSV(t *testing.T) {
	confirmed := sampleRegistration(false)
	waitlisted := sampleRegistration(true)
	store := &fakeStore{items: []*models.Registration{confirmed, waitlisted}}
	r := newRouter(store)

	w, _ := doGet(r, "/admin/registrations/export")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "registrations-")

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "full_name", "email", "whatsapp_number", "linkedin_url", "resume_path", "status", "created_at"}, records[0])
	assert.Equal(t, "confirmed", records[1][6])
	assert.Equal(t, "waitlisted", records[2][6])
	assert.Equal(t, confirmed.ID.String(), records[1][0])
	assert.Equal(t, "2026-03-14T09:30:00Z", records[1][7])
}

func TestStats(t *testing.T) {
	store := &fakeStore{stats: &models.RegistrationStats{Total: 215, Confirmed: 200, Waitlisted: 15, Today: 12, Incomplete: 40}}
	r := newRouter(store)

	w, env := doGet(r, "/admin/stats")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(215), env.Data["total"])
	assert.Equal(t, float64(200), env.Data["confirmed"])
	assert.Equal(t, float64(15), env.Data["waitlisted"])
	assert.Equal(t, float64(200), env.Data["capacity"])
}
