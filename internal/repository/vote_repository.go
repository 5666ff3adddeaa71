package repository

import (
	"context"
	"database/sql"
	"time"
)

// VoteRepo stores land-target votes.  land_votes is the voter set (one row
// per voter and target, enforced by the primary key) and land_vote_totals
// the aggregate counter; both change in the same transaction.
type VoteRepo struct{ db *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{db: db} }

// Add records voterID for targetID.  It returns false when the voter is
// already in the set, leaving the counter untouched.
func (r *VoteRepo) Add(ctx context.Context, targetID, voterID string, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx,
		"INSERT INTO land_votes (target_id, voter_id, created_at) VALUES (?, ?, ?)", targetID, voterID, at.UTC())
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := incrementTotal(ctx, tx, targetID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// incrementTotal bumps the counter row, creating it on the first vote.
func incrementTotal(ctx context.Context, tx *sql.Tx, targetID string) error {
	res, err := tx.ExecContext(ctx, "UPDATE land_vote_totals SET votes = votes + 1 WHERE target_id = ?", targetID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO land_vote_totals (target_id, votes) VALUES (?, 1)", targetID)
	if isDuplicate(err) {
		// another transaction created the row first
		_, err = tx.ExecContext(ctx, "UPDATE land_vote_totals SET votes = votes + 1 WHERE target_id = ?", targetID)
	}
	return err
}

// Tally returns the counter for targetID, zero when nobody voted yet.
func (r *VoteRepo) Tally(ctx context.Context, targetID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT votes FROM land_vote_totals WHERE target_id = ?", targetID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// Tallies returns every counter keyed by target.
func (r *VoteRepo) Tallies(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT target_id, votes FROM land_vote_totals")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var (
			id string
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Has reports whether voterID is in the voter set of targetID.
func (r *VoteRepo) Has(ctx context.Context, targetID, voterID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM land_votes WHERE target_id = ? AND voter_id = ?", targetID, voterID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CountVoters returns the cardinality of the voter set.
func (r *VoteRepo) CountVoters(ctx context.Context, targetID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM land_votes WHERE target_id = ?", targetID).Scan(&n)
	return n, err
}
