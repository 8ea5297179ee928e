// Package mailbox persists accounts, messages, and preferences for the voice mail pages.
package mailbox

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMessageNotFound    = errors.New("message not found")
	ErrInvalidPassword    = errors.New("password does not meet the password rules")
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	email         TEXT PRIMARY KEY COLLATE NOCASE,
	username      TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	password_hash BLOB NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	from_addr   TEXT NOT NULL COLLATE NOCASE,
	to_addr     TEXT NOT NULL COLLATE NOCASE,
	subject     TEXT NOT NULL,
	body        TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_from ON messages(from_addr, created_at);
CREATE INDEX IF NOT EXISTS messages_to ON messages(to_addr, created_at);

CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite-backed mailbox.
type Store struct {
	db   *sql.DB
	now  func() time.Time
	cost int

	// entropy keeps IDs minted within one millisecond in creation order.
	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating when needed) the mailbox database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{
		db:      db,
		now:     time.Now,
		cost:    defaultCost,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
