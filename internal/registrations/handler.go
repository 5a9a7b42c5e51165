package registrations

import (
	"context"
	"errors"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
	"github.com/jengahacks/backend/internal/models"
	"github.com/jengahacks/backend/internal/ratelimit"
	"github.com/jengahacks/backend/internal/validate"
	"github.com/jengahacks/backend/pkg/queue"
	"github.com/jengahacks/backend/pkg/response"
	"github.com/jengahacks/backend/pkg/utils"
)

// Store is the registration persistence the handler needs.
type Store interface {
	Create(ctx context.Context, reg *models.Registration, capacity int) error
	EmailExists(ctx context.Context, email string) (bool, error)
	ConfirmedCount(ctx context.Context) (int, error)
	GetByAccessToken(ctx context.Context, token string) (*models.Registration, error)
	WaitlistPosition(ctx context.Context, email string) (*int, error)
}

// AttemptLimiter enforces the authoritative submission ceilings.
type AttemptLimiter interface {
	Check(ctx context.Context, email, ip string) (ratelimit.Decision, error)
}

// CompletionEnqueuer queues the post-admission incomplete-registration
// cleanup job.
type CompletionEnqueuer interface {
	EnqueueCompletion(ctx context.Context, payload queue.CompletionPayload) error
}

// Supplied access tokens must look like ones we minted; anything else is
// discarded and regenerated.
var accessTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// CreateRequest is the body for POST /registrations. IsWaitlist is accepted
// for compatibility with older clients that precomputed it, but the server
// decides placement.
type CreateRequest struct {
	FullName       string `json:"full_name" binding:"required"`
	Email          string `json:"email" binding:"required"`
	WhatsappNumber string `json:"whatsapp_number"`
	LinkedinURL    string `json:"linkedin_url"`
	ResumePath     string `json:"resume_path"`
	IsWaitlist     *bool  `json:"is_waitlist"`
	AccessToken    string `json:"access_token"`
}

// Handler handles public registration endpoints.
type Handler struct {
	store   Store
	limiter AttemptLimiter
	queue   CompletionEnqueuer
	cfg     config.RegistrationConfig
	logger  *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(store Store, limiter AttemptLimiter, q CompletionEnqueuer, cfg config.RegistrationConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, limiter: limiter, queue: q, cfg: cfg, logger: logger}
}

// Create handles POST /registrations: validate, rate limit, admit.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	input, ferrs := validate.Registration(validate.RegistrationInput{
		FullName:       req.FullName,
		Email:          req.Email,
		WhatsappNumber: req.WhatsappNumber,
		LinkedinURL:    req.LinkedinURL,
		ResumePath:     req.ResumePath,
	})
	if len(ferrs) > 0 {
		response.BadRequest(c, ferrs.Error())
		return
	}

	clientIP := c.ClientIP()
	decision, err := h.limiter.Check(c.Request.Context(), input.Email, clientIP)
	if err != nil {
		h.logger.Error("rate limit check failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	if !decision.Allowed {
		response.TooManyRequests(c, decision.Message())
		return
	}

	token := req.AccessToken
	if !accessTokenPattern.MatchString(token) {
		token, err = utils.GenerateAccessToken()
		if err != nil {
			h.logger.Error("generate access token failed", zap.Error(err))
			response.Internal(c, "failed to register")
			return
		}
	}

	reg := &models.Registration{
		FullName:       input.FullName,
		Email:          input.Email,
		WhatsappNumber: optional(input.WhatsappNumber),
		LinkedinURL:    optional(input.LinkedinURL),
		ResumePath:     optional(input.ResumePath),
		IPAddress:      optional(clientIP),
		AccessToken:    &token,
	}
	if err := h.store.Create(c.Request.Context(), reg, h.cfg.Capacity); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			response.Conflict(c, ErrDuplicateEmail.Error())
		case errors.Is(err, ErrTokenTaken):
			// Either a retry of a submission that already landed, or a cached
			// token reused for a different email. Tell those two apart.
			if exists, exErr := h.store.EmailExists(c.Request.Context(), input.Email); exErr == nil && exists {
				response.Conflict(c, ErrDuplicateEmail.Error())
				return
			}
			response.BadRequest(c, ErrTokenTaken.Error())
		case errors.Is(err, ErrCheckViolation):
			h.logger.Warn("registration rejected by constraint", zap.Error(err))
			response.BadRequest(c, "registration data failed validation")
		default:
			h.logger.Error("create registration failed", zap.Error(err), zap.String("email", input.Email))
			response.Internal(c, "failed to register")
		}
		return
	}

	// Fire-and-forget: the worker marks matching incomplete rows completed.
	payload := queue.CompletionPayload{
		RegistrationID: reg.ID,
		Email:          reg.Email,
		WhatsappNumber: input.WhatsappNumber,
	}
	if err := h.queue.EnqueueCompletion(c.Request.Context(), payload); err != nil {
		h.logger.Warn("enqueue completion job failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
	}

	response.Created(c, gin.H{
		"id":           reg.ID,
		"is_waitlist":  reg.IsWaitlist,
		"access_token": token,
	})
}

// Count handles GET /registrations/count.
func (h *Handler) Count(c *gin.Context) {
	count, err := h.store.ConfirmedCount(c.Request.Context())
	if err != nil {
		h.logger.Error("confirmed count failed", zap.Error(err))
		response.Internal(c, "failed to load registration count")
		return
	}
	response.OK(c, gin.H{
		"count":           count,
		"capacity":        h.cfg.Capacity,
		"waitlist_active": count >= h.cfg.Capacity,
	})
}

// EmailAvailable handles GET /registrations/email-available?email=. Advisory
// only; the admission transaction remains the authority on uniqueness.
func (h *Handler) EmailAvailable(c *gin.Context) {
	email := validate.NormalizeEmail(c.Query("email"))
	if err := validate.Email(email); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	exists, err := h.store.EmailExists(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("email availability check failed", zap.Error(err))
		response.Internal(c, "failed to check email")
		return
	}
	response.OK(c, gin.H{"available": !exists})
}

// Status handles GET /registrations/status?token=.
func (h *Handler) Status(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}
	reg, err := h.store.GetByAccessToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, ErrNotFound.Error())
			return
		}
		h.logger.Error("status lookup failed", zap.Error(err))
		response.Internal(c, "failed to load registration")
		return
	}

	body := gin.H{
		"id":          reg.ID,
		"full_name":   reg.FullName,
		"email":       reg.Email,
		"is_waitlist": reg.IsWaitlist,
		"created_at":  reg.CreatedAt,
	}
	if reg.IsWaitlist {
		pos, err := h.store.WaitlistPosition(c.Request.Context(), reg.Email)
		if err != nil {
			h.logger.Error("waitlist position failed", zap.Error(err), zap.String("email", reg.Email))
		} else {
			body["waitlist_position"] = pos
		}
	}
	response.OK(c, body)
}

// WaitlistPosition handles GET /registrations/waitlist-position?email=.
// A null position means not waitlisted (or unknown), deliberately
// indistinguishable to avoid leaking who has registered.
func (h *Handler) WaitlistPosition(c *gin.Context) {
	email := validate.NormalizeEmail(c.Query("email"))
	if err := validate.Email(email); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pos, err := h.store.WaitlistPosition(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("waitlist position failed", zap.Error(err))
		response.Internal(c, "failed to load waitlist position")
		return
	}
	response.OK(c, gin.H{"position": pos})
}

// IssueAccessToken handles POST /access-tokens. Tokens are only meaningful
// once attached to a registration by the admission flow.
func (h *Handler) IssueAccessToken(c *gin.Context) {
	token, err := utils.GenerateAccessToken()
	if err != nil {
		h.logger.Error("generate access token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{"token": token})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
