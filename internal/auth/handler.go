package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/pkg/response"
	"github.com/jengahacks/backend/pkg/utils"
)

// LoginRequest is the body for POST /admin/login. The dashboard uses one
// shared password; only its bcrypt hash is configured on the server.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Handler handles admin session endpoints.
type Handler struct {
	jwt    *JWTService
	cfg    config.AdminConfig
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(jwt *JWTService, cfg config.AdminConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jwt: jwt, cfg: cfg, logger: logger}
}

// Login handles POST /admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password is required")
		return
	}

	if h.cfg.PasswordHash == "" {
		h.logger.Warn("admin login attempted but ADMIN_PASSWORD_HASH is not set")
		response.ServiceUnavailable(c, "admin access is not configured")
		return
	}
	if !utils.CheckPassword(req.Password, h.cfg.PasswordHash) {
		response.Unauthorized(c, "invalid password")
		return
	}

	token, err := h.jwt.Generate(RoleAdmin)
	if err != nil {
		h.logger.Error("generate admin token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(h.jwt.TTL()),
	})
}
