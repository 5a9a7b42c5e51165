package incomplete

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/internal/models"
	"github.com/jengahacks/backend/internal/validate"
	"github.com/jengahacks/backend/pkg/response"
)

// Store is the persistence the handlers need.
type Store interface {
	Upsert(ctx context.Context, entry *models.IncompleteRegistration) error
	CompleteByContact(ctx context.Context, email, whatsapp string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*models.IncompleteRegistration, int, error)
}

// LogRequest is the body for POST /incomplete-registrations. Partial input
// is stored as-typed, including half-finished values; only the presence of a
// contact identifier is enforced.
type LogRequest struct {
	Email          string          `json:"email"`
	WhatsappNumber string          `json:"whatsapp_number"`
	FullName       string          `json:"full_name"`
	FormData       json.RawMessage `json:"form_data"`
}

// CompleteRequest is the body for POST /incomplete-registrations/complete.
type CompleteRequest struct {
	Email          string `json:"email"`
	WhatsappNumber string `json:"whatsapp_number"`
}

// Handler handles incomplete registration capture and completion.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an incomplete registrations handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Log handles POST /incomplete-registrations.
func (h *Handler) Log(c *gin.Context) {
	var req LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	email := validate.NormalizeEmail(validate.Sanitize(req.Email))
	whatsapp := validate.NormalizeWhatsapp(validate.Sanitize(req.WhatsappNumber))
	fullName := validate.Sanitize(req.FullName)
	if email == "" && whatsapp == "" {
		response.BadRequest(c, "email or whatsapp_number is required")
		return
	}

	entry := &models.IncompleteRegistration{
		Email:          optional(email),
		WhatsappNumber: optional(whatsapp),
		FullName:       optional(fullName),
		FormSnapshot:   req.FormData,
		IPAddress:      optional(c.ClientIP()),
		UserAgent:      optional(c.Request.UserAgent()),
	}
	if err := h.store.Upsert(c.Request.Context(), entry); err != nil {
		h.logger.Error("log incomplete registration failed", zap.Error(err))
		response.Internal(c, "failed to record form activity")
		return
	}
	response.OK(c, gin.H{"id": entry.ID})
}

// Complete handles POST /incomplete-registrations/complete.
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	email := validate.NormalizeEmail(validate.Sanitize(req.Email))
	whatsapp := validate.NormalizeWhatsapp(validate.Sanitize(req.WhatsappNumber))
	if email == "" && whatsapp == "" {
		response.BadRequest(c, "email or whatsapp_number is required")
		return
	}

	n, err := h.store.CompleteByContact(c.Request.Context(), email, whatsapp)
	if err != nil {
		h.logger.Error("complete incomplete registrations failed", zap.Error(err))
		response.Internal(c, "failed to complete form activity")
		return
	}
	response.OK(c, gin.H{"completed": n})
}

// List handles GET /admin/incomplete-registrations.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	items, total, err := h.store.List(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("list incomplete registrations failed", zap.Error(err))
		response.Internal(c, "failed to load incomplete registrations")
		return
	}
	response.OK(c, gin.H{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
