package postgres

import (
	"chat-hub/errors"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	usernameConstraint = "ux_users_username"
	emailConstraint    = "ux_users_email"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  avatar TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'offline',
  last_seen TIMESTAMPTZ,
  bio TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  privacy JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users (LOWER(username));
CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS chats (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  is_group BOOLEAN NOT NULL,
  admin_id TEXT,
  avatar TEXT NOT NULL DEFAULT '',
  direct_key TEXT UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CHECK (is_group OR direct_key IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats (updated_at DESC);

CREATE TABLE IF NOT EXISTS chat_participants (
  chat_id TEXT NOT NULL REFERENCES chats (id),
  user_id TEXT NOT NULL,
  PRIMARY KEY (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants (user_id);

CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  chat_id TEXT NOT NULL REFERENCES chats (id),
  sender_id TEXT NOT NULL,
  content TEXT,
  type TEXT NOT NULL DEFAULT 'text',
  file_url TEXT,
  file_name TEXT,
  file_size BIGINT,
  reply_to_id TEXT,
  is_edited BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, id);

CREATE TABLE IF NOT EXISTS message_reads (
  message_id TEXT NOT NULL REFERENCES messages (id),
  user_id TEXT NOT NULL,
  read_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (message_id, user_id)
);
`

// Open connects and verifies connectivity with a ping.
func Open(ctx context.Context, dsn string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist (idempotent).
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// uniqueConstraint returns the violated constraint name, or "" when err is
// not a unique violation.
func uniqueConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return pqErr.Constraint
	}
	return ""
}

func mapUserConflict(err error) error {
	switch uniqueConstraint(err) {
	case "":
		return err
	case usernameConstraint:
		return errors.ErrUsernameTaken
	case emailConstraint:
		return errors.ErrEmailTaken
	default:
		return errors.ErrUserAlreadyExists
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}
