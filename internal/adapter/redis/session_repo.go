// Package redis stores sessions in Redis with a per-key TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"healthreport/internal/domain"
)

const keyPrefix = "session:"

var _ domain.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements domain.SessionRepository on Redis.
type SessionRepo struct {
	client *redis.Client
}

// Open parses url, connects and pings.
func Open(ctx context.Context, url string) (*SessionRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewSessionRepo(client), nil
}

// NewSessionRepo wraps an existing client.
func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

// Close closes the client.
func (r *SessionRepo) Close() error {
	return r.client.Close()
}

func sessionKey(token string) string {
	return keyPrefix + token
}

// ttlUntil is the key lifetime for a session expiring at expiresAt; zero
// means already expired.
func ttlUntil(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return d
}

func encodeSession(s domain.Session) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSession(b []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Create stores the session until it expires.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	ttl := ttlUntil(s.ExpiresAt, time.Now())
	if ttl == 0 {
		return nil
	}
	b, err := encodeSession(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.Token), b, ttl).Err()
}

// GetByToken returns the session or nil when the key is absent.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	b, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(b)
}

// Delete removes the session key.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}

// DeleteExpired is a no-op; Redis expires keys on its own.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}
