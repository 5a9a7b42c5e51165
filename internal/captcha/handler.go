package captcha

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VerifyRequest is the body for POST /captcha/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// Handler relays CAPTCHA verification for the browser.
type Handler struct {
	verifier *Verifier
	logger   *zap.Logger
}

// NewHandler creates a captcha handler.
func NewHandler(verifier *Verifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, logger: logger}
}

// Verify handles POST /captcha/verify. The response is the provider's shape,
// not the standard envelope; a provider outage responds 503 and still reads
// as failure to the form.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, Result{Success: false, ErrorCodes: []string{"missing-input-response"}})
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), req.Token, c.ClientIP())
	if err != nil {
		h.logger.Warn("captcha verification unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, Result{Success: false, ErrorCodes: []string{"verification-unavailable"}})
		return
	}
	c.JSON(http.StatusOK, result)
}
