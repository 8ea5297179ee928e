package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LokeshkumarVD/Voice-email-system/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrPrefNotFound is returned when a preference key has no value.
var ErrPrefNotFound = errors.New("preference not found")

// PrefUsername holds the last registered or signed-in username.
const PrefUsername = "username"

// Prefs is a small key-value store for page hints.
type Prefs interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Close() error
}

// OpenPrefs selects the preference backend from config.
func OpenPrefs(ctx context.Context, cfg config.StoreConfig, store *Store) (Prefs, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.PrefsBackend)) {
	case config.PrefsRedis:
		return NewRedisPrefs(ctx, cfg.RedisAddr, cfg.RedisDB)
	default:
		return store.Prefs(), nil
	}
}

// Prefs returns the SQLite-backed preference store sharing this database.
func (s *Store) Prefs() Prefs {
	return sqlitePrefs{db: s.db}
}

type sqlitePrefs struct {
	db *sql.DB
}

func (p sqlitePrefs) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPrefNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read pref %q: %w", key, err)
	}
	return value, nil
}

func (p sqlitePrefs) Set(ctx context.Context, key string, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write pref %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (sqlitePrefs) Close() error { return nil }

// RedisPrefs keeps preferences in Redis under the "voicemail:pref:" namespace.
type RedisPrefs struct {
	client *redis.Client
}

const redisPrefix = "voicemail:pref:"

// NewRedisPrefs connects to addr and verifies the connection.
func NewRedisPrefs(ctx context.Context, addr string, db int) (*RedisPrefs, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisPrefs{client: client}, nil
}

func (p *RedisPrefs) Get(ctx context.Context, key string) (string, error) {
	value, err := p.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrPrefNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read pref %q: %w", key, err)
	}
	return value, nil
}

func (p *RedisPrefs) Set(ctx context.Context, key string, value string) error {
	if err := p.client.Set(ctx, redisPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("write pref %q: %w", key, err)
	}
	return nil
}

func (p *RedisPrefs) Close() error {
	return p.client.Close()
}
