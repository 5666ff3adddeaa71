package repository

import (
	"context"
	"database/sql"

	"github.com/elpasoverse/portal/internal/model"
)

// AccountRepo persists accounts and their points_history rows.  Balance
// changes and their history rows are written in one SQL transaction, so the
// two can only diverge through out-of-band writes.
type AccountRepo struct{ db *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, email, normalized_email, display_name, credit_balance,
	signup_bonus_granted, bonus_eligible, device_fingerprint, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var (
		a  model.Account
		fp sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &a.NormalizedEmail, &a.DisplayName, &a.CreditBalance,
		&a.SignupBonusGranted, &a.BonusEligible, &fp, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, notFound(err)
	}
	a.DeviceFingerprint = stringPtr(fp)
	return a, nil
}

// Get fetches an account by id.
func (r *AccountRepo) Get(ctx context.Context, id string) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// CreateIfAbsent inserts a and reports whether the row is new.  The primary
// key decides races between processes: a duplicate insert returns false
// without touching the existing row.
func (r *AccountRepo) CreateIfAbsent(ctx context.Context, a model.Account) (bool, error) {
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.NormalizedEmail, a.DisplayName, a.CreditBalance,
		a.SignupBonusGranted, a.BonusEligible, nullString(a.DeviceFingerprint), a.CreatedAt, a.UpdatedAt)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantSignupBonus credits entry.Amount and flips signup_bonus_granted in a
// single guarded UPDATE, then appends entry.  It returns false, writing
// nothing, when the account is missing, ineligible or already granted.
func (r *AccountRepo) GrantSignupBonus(ctx context.Context, entry model.Transaction) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `UPDATE accounts
		SET credit_balance = credit_balance + ?, signup_bonus_granted = 1, updated_at = ?
		WHERE id = ? AND signup_bonus_granted = 0 AND bonus_eligible = 1`,
		entry.Amount, entry.Timestamp, entry.AccountID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ApplyDelta adds entry.Amount (signed) to the balance and appends entry.
// The UPDATE refuses to take the balance below zero; in that case, or when
// the account does not exist, it returns false and writes nothing.
func (r *AccountRepo) ApplyDelta(ctx context.Context, entry model.Transaction) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `UPDATE accounts
		SET credit_balance = credit_balance + ?, updated_at = ?
		WHERE id = ? AND credit_balance + ? >= 0`,
		entry.Amount, entry.Timestamp, entry.AccountID, entry.Amount)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if err := insertTransaction(ctx, tx, entry); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t model.Transaction) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO points_history (id, account_id, amount, reason, description, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		t.ID, t.AccountID, t.Amount, string(t.Reason), t.Description, t.Timestamp)
	return err
}

// History returns the newest transactions first.
func (r *AccountRepo) History(ctx context.Context, accountID string, limit int) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, account_id, amount, reason, description, created_at
		FROM points_history WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			reason string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &reason, &t.Description, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Reason = model.ReasonCode(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}

// HistorySum returns the sum of every logged amount for the account.
func (r *AccountRepo) HistorySum(ctx context.Context, accountID string) (int64, error) {
	var sum sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT SUM(amount) FROM points_history WHERE account_id = ?", accountID).Scan(&sum)
	return sum.Int64, err
}

// FindBonusHolderByFingerprint returns the email of an account that already
// received the signup bonus from the given device fingerprint.
func (r *AccountRepo) FindBonusHolderByFingerprint(ctx context.Context, fingerprint string) (string, bool, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `SELECT email FROM accounts
		WHERE device_fingerprint = ? AND signup_bonus_granted = 1 LIMIT 1`, fingerprint).Scan(&email)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}
