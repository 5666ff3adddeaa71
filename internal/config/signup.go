package config

import "time"

// SignupConfig holds the anti-abuse thresholds and the signup bonus policy.
type SignupConfig struct {
	BonusAmount          int64         // credits granted on first verified sign-in
	MaxSignupsPerIP      int           // attempts allowed per IP inside Window
	Window               time.Duration // trailing window for the IP limit
	LookupTimeout        time.Duration // bound on every fraud-signal lookup
	RecaptchaSecret      string        // empty disables reCAPTCHA
	RecaptchaVerifyURL   string
	FingerprintCacheSize int // sessions remembered by the fingerprint memo
}

func LoadSignupConfig() SignupConfig {
	return SignupConfig{
		BonusAmount:          int64(envInt("SIGNUP_BONUS", 25)),
		MaxSignupsPerIP:      envInt("SIGNUP_MAX_PER_IP", 3),
		Window:               envDur("SIGNUP_WINDOW", 24*time.Hour),
		LookupTimeout:        envDur("SIGNUP_LOOKUP_TIMEOUT", 3*time.Second),
		RecaptchaSecret:      envStr("RECAPTCHA_SECRET", ""),
		RecaptchaVerifyURL:   envStr("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		FingerprintCacheSize: envInt("FINGERPRINT_CACHE_SIZE", 4096),
	}
}
