package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "aq:session:"

// RedisStore keeps sessions as JSON values with a sliding expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore wraps a connected client. A zero ttl keeps sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (domain.Session, error) {
	var cmd *redis.StringCmd
	if s.ttl > 0 {
		// GETEX refreshes the expiry so reads keep a session alive.
		cmd = s.client.GetEx(ctx, keyPrefix+id, s.ttl)
	} else {
		cmd = s.client.Get(ctx, keyPrefix+id)
	}
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Put(ctx context.Context, sess domain.Session) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func encode(sess domain.Session) ([]byte, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	return data, nil
}

func decode(data []byte) (domain.Session, error) {
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}
