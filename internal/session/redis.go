package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
)

// RedisStore implements Store backed by Redis. Entries expire after the
// configured inactivity TTL unless re-armed by Save or Touch.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Load fetches and decodes the session payload.
func (s *RedisStore) Load(ctx context.Context, sid string) (*domain.Session, error) {
	bytes, err := s.client.Get(ctx, s.prefix+sid).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(bytes, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save stores the encoded session payload and re-arms its TTL.
func (s *RedisStore) Save(ctx context.Context, sid string, sess *domain.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+sid, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Touch re-arms the entry's TTL without rewriting its payload, so
// read-only traffic keeps an active session alive.
func (s *RedisStore) Touch(ctx context.Context, sid string) error {
	if err := s.client.Expire(ctx, s.prefix+sid, s.ttl).Err(); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Delete removes the session entry.
func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.prefix+sid).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
