package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/elpasoverse/portal/internal/model"
)

// SignupAttemptRepo appends and counts rows of signup_attempts.
type SignupAttemptRepo struct{ db *sql.DB }

func NewSignupAttemptRepo(db *sql.DB) *SignupAttemptRepo { return &SignupAttemptRepo{db: db} }

// Insert appends one attempt.
func (r *SignupAttemptRepo) Insert(ctx context.Context, a model.SignupAttempt) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO signup_attempts (id, ip, email, fingerprint, user_agent, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.IP, a.Email, nullString(a.Fingerprint), a.UserAgent, a.Timestamp.UTC())
	return err
}

// CountSince counts attempts from ip strictly after since.
func (r *SignupAttemptRepo) CountSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM signup_attempts WHERE ip = ? AND created_at > ?", ip, since.UTC()).Scan(&n)
	return n, err
}
