package client

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/andymattgee/swe-blog/internal/model"
)

// Profile is the cached view of the signed-in user plus the counts shown in
// the prompt.
type Profile struct {
	User       model.PublicUser `json:"user"`
	EntryCount int              `json:"entryCount"`
	TodoCount  int              `json:"todoCount"`
}

// Session is what survives a client restart.
type Session struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// SessionStore persists the session between runs. Load returns nil when
// nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

const (
	keyToken   = "token"
	keyProfile = "profile"
)

// SQLiteSessionStore keeps the session in a key/value metadata table.
type SQLiteSessionStore struct {
	db *sql.DB
}

//go:embed migrations/*.sql
var migrations embed.FS

// OpenSQLiteSessionStore opens (or creates) the database at path and
// applies the embedded migrations.
func OpenSQLiteSessionStore(ctx context.Context, path string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSessionStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Close() error { return s.db.Close() }

func (s *SQLiteSessionStore) Load(ctx context.Context) (*Session, error) {
	token, err := s.get(ctx, keyToken)
	if err != nil || token == nil {
		return nil, err
	}
	sess := &Session{Token: string(token)}
	raw, err := s.get(ctx, keyProfile)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &sess.Profile); err != nil {
			return nil, fmt.Errorf("decode cached profile: %w", err)
		}
	}
	return sess, nil
}

// Save writes token and profile in one transaction so a crash never leaves
// a token paired with another user's profile.
func (s *SQLiteSessionStore) Save(ctx context.Context, sess Session) error {
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, upsert, keyToken, []byte(sess.Token)); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", keyToken, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyProfile, profile); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", keyProfile, err)
	}
	return tx.Commit()
}

func (s *SQLiteSessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

// MemorySessionStore keeps the session in memory; used when no session file
// is wanted and in tests.
type MemorySessionStore struct {
	sess *Session
}

func (m *MemorySessionStore) Load(context.Context) (*Session, error) {
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	m.sess = &s
	return nil
}

func (m *MemorySessionStore) Clear(context.Context) error {
	m.sess = nil
	return nil
}
