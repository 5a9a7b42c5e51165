package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/internal/models"
	"github.com/jengahacks/backend/internal/validate"
	"github.com/jengahacks/backend/pkg/response"
)

// Store is the read-side persistence the dashboard handlers need.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]*models.Registration, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ExportAll(ctx context.Context) ([]*models.Registration, error)
	Stats(ctx context.Context, capacity int) (*models.RegistrationStats, error)
}

// Handler handles the admin dashboard reads. All routes behind it require
// an admin JWT (enforced by route middleware).
type Handler struct {
	store  Store
	cfg    config.RegistrationConfig
	logger *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(store Store, cfg config.RegistrationConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, cfg: cfg, logger: logger}
}

// List handles GET /admin/registrations.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	f := ListFilter{
		Search: validate.Sanitize(c.Query("search")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	switch c.Query("waitlist") {
	case "true":
		v := true
		f.Waitlist = &v
	case "false":
		v := false
		f.Waitlist = &v
	}

	items, total, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to load registrations")
		return
	}
	response.OK(c, gin.H{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetByID handles GET /admin/registrations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.logger.Error("get registration failed", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to load registration")
		return
	}
	response.OK(c, reg)
}

// Export handles GET /admin/registrations/export. Streams CSV directly,
// not the JSON envelope.
func (h *Handler) Export(c *gin.Context) {
	regs, err := h.store.ExportAll(c.Request.Context())
	if err != nil {
		h.logger.Error("export registrations failed", zap.Error(err))
		response.Internal(c, "failed to export registrations")
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(200)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "full_name", "email", "whatsapp_number", "linkedin_url", "resume_path", "status", "created_at"})
	for _, reg := range regs {
		status := "confirmed"
		if reg.IsWaitlist {
			status = "waitlisted"
		}
		_ = w.Write([]string{
			reg.ID.String(),
			reg.FullName,
			reg.Email,
			deref(reg.WhatsappNumber),
			deref(reg.LinkedinURL),
			deref(reg.ResumePath),
			status,
			reg.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.Warn("csv export write failed", zap.Error(err))
	}
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), h.cfg.Capacity)
	if err != nil {
		h.logger.Error("load stats failed", zap.Error(err))
		response.Internal(c, "failed to load stats")
		return
	}
	response.OK(c, stats)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
