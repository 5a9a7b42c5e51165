package resumes

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/internal/auth"
	"github.com/jengahacks/backend/internal/validate"
	"github.com/jengahacks/backend/pkg/response"
	"github.com/jengahacks/backend/pkg/storage"
	"github.com/jengahacks/backend/pkg/utils"
)

// AccessURLTTL is how long a reviewer download link stays valid.
const AccessURLTTL = time.Hour

// Signer is the storage surface the handlers need.
type Signer interface {
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	HeadResume(ctx context.Context, key string) error
	PresignExpire() time.Duration
}

// RegistrationChecker reports whether a resume path belongs to a
// registration. Unreferenced paths get a 404 so the endpoint cannot be used
// to probe the bucket.
type RegistrationChecker interface {
	ResumePathReferenced(ctx context.Context, path string) (bool, error)
}

// GenerateUploadURLRequest is the body for POST /resumes/upload-url.
type GenerateUploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size" binding:"required,gt=0"`
}

// AccessURLRequest is the body for POST /resumes/access-url. Reviewers
// authenticate with either the shared admin password or a session token.
type AccessURLRequest struct {
	ResumePath    string `json:"resume_path" binding:"required"`
	AdminPassword string `json:"admin_password"`
}

// Handler handles resume upload and access endpoints.
type Handler struct {
	signer   Signer
	regs     RegistrationChecker
	jwt      *auth.JWTService
	adminCfg config.AdminConfig
	logger   *zap.Logger
}

// NewHandler creates a resumes handler.
func NewHandler(signer Signer, regs RegistrationChecker, jwt *auth.JWTService, adminCfg config.AdminConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{signer: signer, regs: regs, jwt: jwt, adminCfg: adminCfg, logger: logger}
}

// GenerateUploadURL handles POST /resumes/upload-url. The browser PUTs the
// file straight to storage; the returned resume_path goes into the
// registration form.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	if h.signer == nil {
		response.Internal(c, "resume storage not configured")
		return
	}
	var req GenerateUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := storage.ValidateResumeFile(req.ContentType, req.Filename, req.FileSize); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	key := storage.ResumeKey(uuid.New().String(), req.Filename)
	expire := h.signer.PresignExpire()
	url, err := h.signer.GeneratePresignedUploadURL(c.Request.Context(), key, storage.ResumeContentType, expire)
	if err != nil {
		h.logger.Error("generate presigned upload URL failed", zap.Error(err))
		response.Internal(c, "resume upload unavailable")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"resume_path":  key,
		"content_type": storage.ResumeContentType,
		"expires_in":   int(expire.Seconds()),
	})
}

// Upload handles POST /resumes/upload (multipart). Server-side streaming
// upload for clients that cannot PUT to a presigned URL.
func (h *Handler) Upload(c *gin.Context) {
	if h.signer == nil {
		response.Internal(c, "resume storage not configured")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		// generic type from the client; fall back to the extension check
		contentType = ""
	}
	if err := storage.ValidateResumeFile(contentType, header.Filename, header.Size); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("open multipart file failed", zap.Error(err))
		response.Internal(c, "failed to read upload")
		return
	}
	defer file.Close()

	key := storage.ResumeKey(uuid.New().String(), header.Filename)
	if err := h.signer.Upload(c.Request.Context(), key, storage.ResumeContentType, file, header.Size); err != nil {
		h.logger.Error("resume upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store resume")
		return
	}
	response.Created(c, gin.H{"resume_path": key})
}

// AccessURL handles POST /resumes/access-url. Responds 404 for any path no
// registration references, 401 without a valid credential, and a signed URL
// valid for exactly one hour otherwise.
func (h *Handler) AccessURL(c *gin.Context) {
	if h.signer == nil {
		response.Internal(c, "resume storage not configured")
		return
	}
	var req AccessURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "resume_path is required")
		return
	}
	if !h.authorized(c, req.AdminPassword) {
		response.Unauthorized(c, "unauthorized")
		return
	}
	if err := validate.ResumePath(req.ResumePath); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	referenced, err := h.regs.ResumePathReferenced(c.Request.Context(), req.ResumePath)
	if err != nil {
		h.logger.Error("resume reference check failed", zap.Error(err))
		response.Internal(c, "failed to resolve resume")
		return
	}
	if !referenced {
		response.NotFound(c, "resume not found")
		return
	}

	if err := h.signer.HeadResume(c.Request.Context(), req.ResumePath); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.NotFound(c, "resume not found")
			return
		}
		// storage reachability problems should not block a signed URL
		h.logger.Warn("resume head check failed", zap.Error(err), zap.String("path", req.ResumePath))
	}

	issuedAt := time.Now()
	url, err := h.signer.GeneratePresignedDownloadURL(c.Request.Context(), req.ResumePath, AccessURLTTL)
	if err != nil {
		h.logger.Error("generate presigned download URL failed", zap.Error(err), zap.String("path", req.ResumePath))
		response.Internal(c, "failed to sign resume URL")
		return
	}
	response.OK(c, gin.H{
		"url":        url,
		"expires_at": issuedAt.Add(AccessURLTTL),
	})
}

func (h *Handler) authorized(c *gin.Context, password string) bool {
	if password != "" && h.adminCfg.PasswordHash != "" && utils.CheckPassword(password, h.adminCfg.PasswordHash) {
		return true
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		if claims, err := h.jwt.Validate(parts[1]); err == nil && claims.Role == auth.RoleAdmin {
			return true
		}
	}
	return false
}
