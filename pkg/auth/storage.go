package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nework/pkg/model"

	"github.com/redis/go-redis/v9"
)

// Storage persists the session across restarts.
// Load returns a logged out session when nothing is stored.
type Storage interface {
	Load(ctx context.Context) (model.Session, error)
	Save(ctx context.Context, session model.Session) error
	Clear(ctx context.Context) error
}

type sqlStorage struct {
	db *sql.DB
}

// SQLStorage keeps the session in a single-row table of db
func SQLStorage(ctx context.Context, db *sql.DB) (Storage, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session (
		slot INTEGER PRIMARY KEY CHECK (slot = 0),
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		name TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("error creating session table: %w", err)
	}
	return &sqlStorage{db: db}, nil
}

func (s *sqlStorage) Load(ctx context.Context) (model.Session, error) {
	var session model.Session
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id, token, name, expires_at FROM session WHERE slot = 0").
		Scan(&session.ID, &session.Token, &session.Name, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("error reading session: %w", err)
	}
	if expiresAt != 0 {
		session.ExpiresAt = time.UnixMilli(expiresAt)
	}
	return session, nil
}

func (s *sqlStorage) Save(ctx context.Context, session model.Session) error {
	var expiresAt int64
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO session (slot, user_id, token, name, expires_at) VALUES (0, ?, ?, ?, ?)",
		session.ID, session.Token, session.Name, expiresAt)
	if err != nil {
		return fmt.Errorf("error writing session: %w", err)
	}
	return nil
}

func (s *sqlStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session"); err != nil {
		return fmt.Errorf("error clearing session: %w", err)
	}
	return nil
}

type redisStorage struct {
	client *redis.Client
	key    string
}

// RedisStorage keeps the session as json under key. Sessions with a known
// expiry are stored with a matching ttl.
func RedisStorage(client *redis.Client, key string) Storage {
	return &redisStorage{client: client, key: key}
}

func (s *redisStorage) Load(ctx context.Context) (model.Session, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("error reading session from redis: %w", err)
	}
	var session model.Session
	if err := json.Unmarshal(b, &session); err != nil {
		return model.Session{}, fmt.Errorf("error parsing stored session: %w", err)
	}
	return session, nil
}

func (s *redisStorage) Save(ctx context.Context, session model.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("error converting session to json: %w", err)
	}
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return ErrExpired
		}
	}
	if err := s.client.Set(ctx, s.key, b, ttl).Err(); err != nil {
		return fmt.Errorf("error writing session to redis: %w", err)
	}
	return nil
}

func (s *redisStorage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("error clearing session in redis: %w", err)
	}
	return nil
}
