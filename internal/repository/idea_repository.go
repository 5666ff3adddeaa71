package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/elpasoverse/portal/internal/model"
)

// IdeaRepo persists film ideas and their supporter sets.
type IdeaRepo struct{ db *sql.DB }

func NewIdeaRepo(db *sql.DB) *IdeaRepo { return &IdeaRepo{db: db} }

const ideaColumns = `id, title, logline, description, genre, submitter, submitter_id,
	image_url, status, support_count, support_goal, created_at`

func scanIdea(row interface{ Scan(...any) error }) (model.FilmIdea, error) {
	var (
		i   model.FilmIdea
		img sql.NullString
	)
	err := row.Scan(&i.ID, &i.Title, &i.Logline, &i.Description, &i.Genre, &i.Submitter, &i.SubmitterID,
		&img, &i.Status, &i.SupportCount, &i.SupportGoal, &i.CreatedAt)
	if err != nil {
		return model.FilmIdea{}, notFound(err)
	}
	i.ImageURL = stringPtr(img)
	return i, nil
}

// Create inserts a new idea.
func (r *IdeaRepo) Create(ctx context.Context, i model.FilmIdea) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO film_ideas (`+ideaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Title, i.Logline, i.Description, i.Genre, i.Submitter, i.SubmitterID,
		nullString(i.ImageURL), i.Status, i.SupportCount, i.SupportGoal, i.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// Get fetches one idea.
func (r *IdeaRepo) Get(ctx context.Context, id string) (model.FilmIdea, error) {
	return scanIdea(r.db.QueryRowContext(ctx, "SELECT "+ideaColumns+" FROM film_ideas WHERE id = ?", id))
}

// List returns ideas newest first.
func (r *IdeaRepo) List(ctx context.Context, limit int) ([]model.FilmIdea, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ideaColumns+" FROM film_ideas ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FilmIdea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// ToggleSupport adds userID to the idea's supporters, or removes it when
// already present, keeping support_count equal to the set size.  It returns
// the new membership and count; ErrNotFound when the idea does not exist.
func (r *IdeaRepo) ToggleSupport(ctx context.Context, ideaID, userID string, at time.Time) (bool, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer rollback(tx)

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM film_ideas WHERE id = ?", ideaID).Scan(&exists); err != nil {
		return false, 0, notFound(err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM idea_supporters WHERE idea_id = ? AND user_id = ?", ideaID, userID)
	if err != nil {
		return false, 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	supported := removed == 0
	delta := -1
	if supported {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO idea_supporters (idea_id, user_id, created_at) VALUES (?, ?, ?)", ideaID, userID, at.UTC()); err != nil {
			return false, 0, err
		}
		delta = 1
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE film_ideas SET support_count = support_count + ? WHERE id = ?", delta, ideaID); err != nil {
		return false, 0, err
	}
	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT support_count FROM film_ideas WHERE id = ?", ideaID).Scan(&count); err != nil {
		return false, 0, err
	}
	return supported, count, tx.Commit()
}

// SupportedBy lists the idea ids userID currently supports.
func (r *IdeaRepo) SupportedBy(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT idea_id FROM idea_supporters WHERE user_id = ? ORDER BY idea_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetStatus updates the idea's status.
func (r *IdeaRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE film_ideas SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		if err == nil {
			err = ErrNotFound
		}
		return err
	}
	return nil
}
