package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
)

// TodoRepo encapsulates all database queries related to todos.
type TodoRepo struct {
	db *sql.DB
}

func NewTodoRepo(db *sql.DB) *TodoRepo {
	return &TodoRepo{db: db}
}

const todoColumns = "id, user_id, task, notes, priority, completed, completed_at, deadline, created_at, updated_at"

// Create inserts t and populates its ID and timestamps.
func (r *TodoRepo) Create(ctx context.Context, t *model.Todo) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO todos (user_id, task, notes, priority, completed, completed_at, deadline, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.UserID, t.Task, t.Notes, string(t.Priority), t.Completed, nullTime(t.CompletedAt), nullDate(t.Deadline), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

// ListByOwner returns all todos of an owner, newest first.
func (r *TodoRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Todo, error) {
	q := "SELECT " + todoColumns + " FROM todos WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndOwner fetches a todo owned by ownerID.
func (r *TodoRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Todo, error) {
	q := "SELECT " + todoColumns + " FROM todos WHERE id = ? AND user_id = ?"
	t, err := scanTodo(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// Update writes every mutable column of t.
func (r *TodoRepo) Update(ctx context.Context, t *model.Todo) error {
	now := time.Now().UTC().Truncate(time.Second)
	const q = `UPDATE todos SET task = ?, notes = ?, priority = ?, completed = ?, completed_at = ?, deadline = ?, updated_at = ?
	           WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Task, t.Notes, string(t.Priority), t.Completed, nullTime(t.CompletedAt), nullDate(t.Deadline), now, t.ID, t.UserID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// Toggle flips the completion flag in one statement and stamps or clears
// completed_at. MySQL evaluates SET assignments left to right, so the IF
// sees the already flipped value.
func (r *TodoRepo) Toggle(ctx context.Context, id, ownerID uint64, at time.Time) error {
	const q = `UPDATE todos SET completed = NOT completed, completed_at = IF(completed, ?, NULL), updated_at = ?
	           WHERE id = ? AND user_id = ?`
	at = at.UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, q, at, at, id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a todo permanently.
func (r *TodoRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanTodo(s rowScanner) (*model.Todo, error) {
	var (
		t           model.Todo
		priority    string
		completedAt sql.NullTime
		deadline    sql.Null[model.Date]
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Task, &t.Notes, &priority, &t.Completed, &completedAt, &deadline, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Priority = model.Priority(priority)
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	if deadline.Valid {
		d := deadline.V
		t.Deadline = &d
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// nullDate renders a deadline as a DATE literal.
func nullDate(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
