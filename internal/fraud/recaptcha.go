package fraud

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elpasoverse/portal/internal/metrics"
)

// DefaultRecaptchaURL is Google's server-side verification endpoint.
const DefaultRecaptchaURL = "https://www.google.com/recaptcha/api/siteverify"

// Recaptcha verifies challenge responses server side.  With no secret
// configured every request passes; transport failures also pass.
type Recaptcha struct {
	secret  string
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewRecaptcha(secret, verifyURL string, timeout time.Duration, logger *slog.Logger) *Recaptcha {
	if verifyURL == "" {
		verifyURL = DefaultRecaptchaURL
	}
	return &Recaptcha{
		secret:  secret,
		url:     verifyURL,
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Configured reports whether a secret is set.
func (r *Recaptcha) Configured() bool { return r != nil && r.secret != "" }

// Verify reports whether token is an accepted challenge response.
func (r *Recaptcha) Verify(ctx context.Context, token, remoteIP string) bool {
	if !r.Configured() {
		return true
	}
	if strings.TrimSpace(token) == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	form := url.Values{"secret": {r.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return true
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := r.client.Do(req)
	if err != nil {
		metrics.FraudLookupFailures.WithLabelValues("recaptcha").Inc()
		r.logger.Warn("recaptcha unreachable, allowing", "err", err)
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.FraudLookupFailures.WithLabelValues("recaptcha").Inc()
		r.logger.Warn("recaptcha bad status, allowing", "status", resp.StatusCode)
		return true
	}
	var body struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.FraudLookupFailures.WithLabelValues("recaptcha").Inc()
		return true
	}
	if !body.Success {
		r.logger.Info("recaptcha rejected", "codes", body.ErrorCodes)
	}
	return body.Success
}
