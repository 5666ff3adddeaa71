// Package repository holds the SQL persistence for the portal.  Queries are
// written to run unchanged on MySQL and sqlite: plain `?` placeholders, no
// dialect-specific upserts, timestamps supplied by the caller in UTC.
//
// Sentinel errors let the services distinguish missing rows and uniqueness
// conflicts without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing row.
// Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create for a taken address.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a primary/unique key violation.  MySQL
// reports error 1062; sqlite reports a UNIQUE or PRIMARY KEY constraint failure.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "primary key constraint") ||
		strings.Contains(msg, "duplicate entry")
}

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// rollback is deferred by every transactional method; it is a no-op after Commit.
func rollback(tx *sql.Tx) { _ = tx.Rollback() }

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
