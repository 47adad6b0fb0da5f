package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymattgee/swe-blog/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "profile_image_url", "created_at", "updated_at"}

func TestUserRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users (email,password_hash,first_name,last_name,created_at,updated_at)")).
		WithArgs("a@x.com", "hash", "Ann", "Lee", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	u := &model.User{Email: "  A@X.com ", PasswordHash: "hash", FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(11), u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestUserRepo_Create_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM users WHERE email=? LIMIT 1")).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "a@x.com", "h", "A", "B", nil, now, now))

	u, err := repo.GetByEmail(context.Background(), "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)
	assert.Empty(t, u.ProfileImageURL)

	mock.ExpectQuery(q("FROM users WHERE email=? LIMIT 1")).
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_Updates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("UPDATE users SET password_hash=? WHERE id=?")).
		WithArgs("newhash", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), 5, "newhash"))

	mock.ExpectExec(q("UPDATE users SET profile_image_url=? WHERE id=?")).
		WithArgs("/uploads/a.png", 6).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateProfileImage(context.Background(), 6, "/uploads/a.png"), ErrNotFound)
}

func TestTokenRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()

	mock.ExpectExec(q("INSERT INTO user_tokens (user_id, token_hash, created_at)")).
		WithArgs(1, "h1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Store(ctx, 1, "h1"))

	mock.ExpectExec(q("INSERT INTO user_tokens")).
		WillReturnError(&mysql.MySQLError{Number: 1062})
	assert.ErrorIs(t, repo.Store(ctx, 1, "h1"), ErrDuplicateToken)

	mock.ExpectQuery(q("SELECT 1 FROM user_tokens WHERE user_id=? AND token_hash=?")).
		WithArgs(1, "h1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	ok, err := repo.Exists(ctx, 1, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(q("SELECT 1 FROM user_tokens")).
		WithArgs(1, "gone").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	ok, err = repo.Exists(ctx, 1, "gone")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(q("DELETE FROM user_tokens WHERE user_id=? AND token_hash=?")).
		WithArgs(1, "h1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Delete(ctx, 1, "h1"), "deleting an absent token is not an error")

	mock.ExpectExec(q("DELETE FROM user_tokens WHERE user_id=?")).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, repo.DeleteAllForUser(ctx, 1))
}

var entryCols = []string{"id", "user_id", "title", "professional_content", "personal_content", "image_url", "ai_summary", "created_at", "updated_at"}

func TestEntryRepo_CreateAndList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec(q("INSERT INTO entries")).
		WithArgs(3, "T", "<p>hi</p>", "", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))
	e := &model.Entry{UserID: 3, Title: "T", ProfessionalContent: "<p>hi</p>"}
	require.NoError(t, repo.Create(ctx, e))
	assert.Equal(t, uint64(9), e.ID)

	mock.ExpectQuery(q("FROM entries WHERE user_id = ? ORDER BY created_at DESC")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(9, 3, "T", "<p>hi</p>", "", nil, nil, now, now).
			AddRow(8, 3, "Older", "<p>x</p>", "<p>me</p>", "https://cdn/x.png", "short", now, now))
	list, err := repo.ListByOwner(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "T", list[0].Title)
	assert.Equal(t, "https://cdn/x.png", list[1].ImageURL)
	assert.Equal(t, "short", list[1].AISummary)
}

func TestEntryRepo_ListEmptyIsNotNil(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("FROM entries WHERE user_id = ?")).WithArgs(4).WillReturnRows(sqlmock.NewRows(entryCols))

	list, err := NewEntryRepo(db).ListByOwner(context.Background(), 4)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestEntryRepo_OwnerScoping(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEntryRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(q("FROM entries WHERE id = ? AND user_id = ?")).
		WithArgs(9, 2).
		WillReturnRows(sqlmock.NewRows(entryCols))
	_, err := repo.GetByIDAndOwner(ctx, 9, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(q("UPDATE entries SET title = ?")).
		WithArgs("T2", "<p>a</p>", "", nil, sqlmock.AnyArg(), 9, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(ctx, &model.Entry{ID: 9, UserID: 2, Title: "T2", ProfessionalContent: "<p>a</p>"})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(q("DELETE FROM entries WHERE id = ? AND user_id = ?")).
		WithArgs(9, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, 9, 2), ErrNotFound)

	mock.ExpectExec(q("DELETE FROM entries WHERE id = ? AND user_id = ?")).
		WithArgs(9, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(ctx, 9, 3))

	mock.ExpectExec(q("UPDATE entries SET ai_summary = ?")).
		WithArgs("sum", 9, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SetSummary(ctx, 9, 3, "sum"))
}

var todoCols = []string{"id", "user_id", "task", "notes", "priority", "completed", "completed_at", "deadline", "created_at", "updated_at"}

func TestTodoRepo_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTodoRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	deadline := model.Date{Year: 2026, Month: time.October, Day: 13}

	mock.ExpectExec(q("INSERT INTO todos")).
		WithArgs(3, "Write", "", "high", false, nil, "2026-10-13", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))
	td := &model.Todo{UserID: 3, Task: "Write", Priority: model.PriorityHigh, Deadline: &deadline}
	require.NoError(t, repo.Create(ctx, td))
	assert.Equal(t, uint64(4), td.ID)

	mock.ExpectQuery(q("FROM todos WHERE id = ? AND user_id = ?")).
		WithArgs(4, 3).
		WillReturnRows(sqlmock.NewRows(todoCols).
			AddRow(4, 3, "Write", "", "high", false, nil, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), now, now))
	got, err := repo.GetByIDAndOwner(ctx, 4, 3)
	require.NoError(t, err)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, deadline, *got.Deadline)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, model.PriorityHigh, got.Priority)
}

func TestTodoRepo_ListAndToggle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTodoRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM todos WHERE user_id = ? ORDER BY created_at DESC, id DESC")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(todoCols).
			AddRow(1, 3, "a", "", "low", true, now, nil, now, now).
			AddRow(2, 3, "b", "<p>n</p>", "low", false, nil, nil, now, now))
	list, err := repo.ListByOwner(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].CompletedAt)
	assert.Nil(t, list[1].Deadline)

	mock.ExpectExec(q("UPDATE todos SET completed = NOT completed, completed_at = IF(completed, ?, NULL)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Toggle(ctx, 1, 3, now))

	mock.ExpectExec(q("UPDATE todos SET completed = NOT completed")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Toggle(ctx, 1, 99, now), ErrNotFound)

	mock.ExpectExec(q("DELETE FROM todos WHERE id = ? AND user_id = ?")).
		WithArgs(2, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, 2, 3))
}
