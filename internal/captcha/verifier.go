package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jengahacks/backend/config"
)

// Result mirrors the provider's verify response and is relayed to the
// browser as-is (this endpoint does not use the standard envelope).
type Result struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// Verifier checks CAPTCHA tokens against the provider. Anything short of an
// explicit success from the provider counts as failure.
type Verifier struct {
	client *http.Client
	cfg    config.CaptchaConfig
	logger *zap.Logger
}

// NewVerifier creates a verifier with a bounded request timeout.
func NewVerifier(cfg config.CaptchaConfig, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.TimeoutSec <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Verify posts the token to the provider. A missing token short-circuits to
// failure without a provider call; transport and provider errors are
// returned so the handler can signal an outage distinctly.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	if strings.TrimSpace(token) == "" {
		return Result{Success: false, ErrorCodes: []string{"missing-input-response"}}, nil
	}

	form := url.Values{
		"secret":   {v.cfg.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("captcha provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("captcha provider status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode captcha response: %w", err)
	}
	return result, nil
}
