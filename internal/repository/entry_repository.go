package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
)

// EntryRepo encapsulates all database queries related to journal entries.
type EntryRepo struct {
	db *sql.DB
}

func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

const entryColumns = "id, user_id, title, professional_content, personal_content, image_url, ai_summary, created_at, updated_at"

// Create inserts e and populates its ID and timestamps.
func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO entries (user_id, title, professional_content, personal_content, image_url, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.UserID, e.Title, e.ProfessionalContent, e.PersonalContent, nullString(e.ImageURL), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

// ListByOwner returns all entries of an owner, newest first.
func (r *EntryRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Entry, error) {
	q := "SELECT " + entryColumns + " FROM entries WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndOwner fetches an entry by id but only if it belongs to the
// specified owner. Missing and foreign rows both yield ErrNotFound.
func (r *EntryRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Entry, error) {
	q := "SELECT " + entryColumns + " FROM entries WHERE id = ? AND user_id = ?"
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Update writes the mutable columns of e. The row must belong to e.UserID.
func (r *EntryRepo) Update(ctx context.Context, e *model.Entry) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `UPDATE entries SET title = ?, professional_content = ?, personal_content = ?, image_url = ?, updated_at = ?
	           WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, e.Title, e.ProfessionalContent, e.PersonalContent, nullString(e.ImageURL), now, e.ID, e.UserID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	e.UpdatedAt = now
	return nil
}

// SetSummary stores an AI-generated summary on an entry.
func (r *EntryRepo) SetSummary(ctx context.Context, id, ownerID uint64, summary string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE entries SET ai_summary = ? WHERE id = ? AND user_id = ?", nullString(summary), id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an entry permanently.
func (r *EntryRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (*model.Entry, error) {
	var (
		e       model.Entry
		img     sql.NullString
		summary sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.ProfessionalContent, &e.PersonalContent, &img, &summary, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ImageURL = img.String
	e.AISummary = summary.String
	return &e, nil
}
