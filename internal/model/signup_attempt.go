package model

import "time"

// SignupAttempt is the anti-abuse audit row written for every signup.  Rows
// are never updated; they only feed the per-IP window count.
type SignupAttempt struct {
	ID          string
	IP          string
	Email       string
	Fingerprint *string
	UserAgent   string
	Timestamp   time.Time
}
