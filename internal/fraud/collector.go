// Package fraud gathers the anti-abuse signals evaluated at signup: the
// disposable-domain denylist, a per-IP attempt window, device fingerprint
// reuse and reCAPTCHA.  Every lookup is bounded by a timeout and fails open;
// a degraded signal never blocks a legitimate signup.
package fraud

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/metrics"
	"github.com/elpasoverse/portal/internal/model"
)

// AttemptStore is the signup_attempts log.
type AttemptStore interface {
	Insert(ctx context.Context, a model.SignupAttempt) error
	CountSince(ctx context.Context, ip string, since time.Time) (int, error)
}

// BonusHolderFinder looks up accounts that already received the signup
// bonus from a device.
type BonusHolderFinder interface {
	FindBonusHolderByFingerprint(ctx context.Context, fingerprint string) (string, bool, error)
}

// Reason explains why a signup was refused.
type Reason string

const (
	ReasonDisposableEmail Reason = "disposable_email"
	ReasonCaptcha         Reason = "captcha_required"
	ReasonRateLimited     Reason = "rate_limited"
)

// Message is the user-facing text for r.
func (r Reason) Message() string {
	switch r {
	case ReasonDisposableEmail:
		return "Please use a permanent email address. Temporary or disposable emails are not allowed."
	case ReasonCaptcha:
		return "Please complete the reCAPTCHA verification."
	case ReasonRateLimited:
		return "Too many signup attempts from your location. Please try again later."
	}
	return ""
}

type RateLimitVerdict struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Count     int  `json:"count"`
}

type FingerprintVerdict struct {
	IsNew         bool   `json:"is_new"`
	ExistingEmail string `json:"existing_email,omitempty"`
}

// Verdict is the outcome of Validate.  A valid signup may still be
// ineligible for the bonus when its device already earned one.
type Verdict struct {
	Valid         bool   `json:"valid"`
	Reason        Reason `json:"reason,omitempty"`
	IP            string `json:"ip,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	BonusEligible bool   `json:"bonus_eligible"`
}

// DefaultVerdict is used when an account is created without a signup
// validation, as in lazy repair: valid but not bonus-eligible.
func DefaultVerdict() Verdict { return Verdict{Valid: true} }

// SignupRequest carries what the client reports about a signup.
type SignupRequest struct {
	Email        string
	IP           string
	UserAgent    string
	Session      string // key for the fingerprint memo
	CaptchaToken string
	Traits       DeviceTraits
}

// Collector evaluates fraud signals.  attempts and holders may be nil when
// no database is configured; the checks then pass.
type Collector struct {
	cfg      config.SignupConfig
	attempts AttemptStore
	holders  BonusHolderFinder
	captcha  *Recaptcha
	prints   *fingerprints
	logger   *slog.Logger
	now      func() time.Time
}

func NewCollector(cfg config.SignupConfig, attempts AttemptStore, holders BonusHolderFinder, captcha *Recaptcha, logger *slog.Logger) *Collector {
	if cfg.MaxSignupsPerIP <= 0 {
		cfg.MaxSignupsPerIP = 3
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 3 * time.Second
	}
	return &Collector{
		cfg:      cfg,
		attempts: attempts,
		holders:  holders,
		captcha:  captcha,
		prints:   newFingerprints(cfg.FingerprintCacheSize),
		logger:   logger.With("component", "fraud"),
		now:      time.Now,
	}
}

// IsDisposableEmail checks the denylist.
func (c *Collector) IsDisposableEmail(email string) bool { return IsDisposableEmail(email) }

// unknownIP buckets attempts whose client address could not be read.
const unknownIP = "unknown"

func attemptIP(ip string) string {
	if ip == "" {
		return unknownIP
	}
	return ip
}

// CheckIPRateLimit counts attempts from ip in the trailing window.  An empty
// ip shares the "unknown" bucket RecordAttempt writes to.  Failed lookups are
// allowed with the full allowance.
func (c *Collector) CheckIPRateLimit(ctx context.Context, ip string) RateLimitVerdict {
	open := RateLimitVerdict{Allowed: true, Remaining: c.cfg.MaxSignupsPerIP}
	if c.attempts == nil {
		return open
	}
	ip = attemptIP(ip)
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LookupTimeout)
	defer cancel()

	n, err := c.attempts.CountSince(ctx, ip, c.now().Add(-c.cfg.Window))
	if err != nil {
		metrics.FraudLookupFailures.WithLabelValues("ip_rate").Inc()
		c.logger.Warn("ip rate lookup failed, allowing", "ip", ip, "err", err)
		return open
	}
	return RateLimitVerdict{
		Allowed:   n < c.cfg.MaxSignupsPerIP,
		Remaining: max(0, c.cfg.MaxSignupsPerIP-n),
		Count:     n,
	}
}

// Fingerprint hashes traits, remembering the result for session.
func (c *Collector) Fingerprint(session string, traits DeviceTraits) string {
	return c.prints.get(session, traits)
}

// IsFingerprintReused reports whether an account that already received the
// signup bonus carries fp.  Lookup failures count as new.
func (c *Collector) IsFingerprintReused(ctx context.Context, fp string) FingerprintVerdict {
	if fp == "" || c.holders == nil {
		return FingerprintVerdict{IsNew: true}
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LookupTimeout)
	defer cancel()

	email, found, err := c.holders.FindBonusHolderByFingerprint(ctx, fp)
	if err != nil {
		metrics.FraudLookupFailures.WithLabelValues("fingerprint").Inc()
		c.logger.Warn("fingerprint lookup failed, treating as new", "err", err)
		return FingerprintVerdict{IsNew: true}
	}
	if found {
		return FingerprintVerdict{IsNew: false, ExistingEmail: email}
	}
	return FingerprintVerdict{IsNew: true}
}

// RecordAttempt appends an audit row.  Errors are logged, never returned.
func (c *Collector) RecordAttempt(ctx context.Context, ip, email, fp, userAgent string) {
	if c.attempts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LookupTimeout)
	defer cancel()

	ip = attemptIP(ip)
	a := model.SignupAttempt{
		ID:        uuid.NewString(),
		IP:        ip,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		UserAgent: userAgent,
		Timestamp: c.now().UTC(),
	}
	if fp != "" {
		a.Fingerprint = &fp
	}
	if err := c.attempts.Insert(ctx, a); err != nil {
		c.logger.Error("record signup attempt", "ip", ip, "err", err)
	}
}

// Validate runs the checks in order: disposable email, reCAPTCHA, IP rate
// limit, then fingerprint reuse.  The first three refuse the signup; a
// reused fingerprint only removes bonus eligibility.
func (c *Collector) Validate(ctx context.Context, req SignupRequest) Verdict {
	v := Verdict{Valid: true, BonusEligible: true, IP: req.IP}
	refuse := func(r Reason) Verdict {
		v.Valid, v.Reason, v.BonusEligible = false, r, false
		metrics.SignupVerdicts.WithLabelValues(string(r)).Inc()
		return v
	}

	if c.IsDisposableEmail(req.Email) {
		return refuse(ReasonDisposableEmail)
	}
	if !c.captcha.Verify(ctx, req.CaptchaToken, req.IP) {
		return refuse(ReasonCaptcha)
	}
	if rl := c.CheckIPRateLimit(ctx, req.IP); !rl.Allowed {
		c.logger.Info("signup rate limited", "ip", req.IP, "count", rl.Count)
		return refuse(ReasonRateLimited)
	}

	v.Fingerprint = c.Fingerprint(req.Session, req.Traits)
	if fv := c.IsFingerprintReused(ctx, v.Fingerprint); !fv.IsNew {
		v.BonusEligible = false
		c.logger.Info("device already earned a signup bonus", "existing_email", fv.ExistingEmail)
		metrics.SignupVerdicts.WithLabelValues("bonus_ineligible").Inc()
		return v
	}
	metrics.SignupVerdicts.WithLabelValues("valid").Inc()
	return v
}
