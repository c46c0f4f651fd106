package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tubeflow:refresh:"

// RedisRefreshStoreConfig configures the Redis-backed refresh store.
type RedisRefreshStoreConfig struct {
	Addr         string
	Addrs        []string
	Username     string
	Password     string
	MasterName   string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisRefreshStore persists refresh tokens in Redis with native TTL-based
// expiry. A per-user set tracks issued tokens so rotation can invalidate
// them all.
type RedisRefreshStore struct {
	client redis.UniversalClient
}

// NewRedisRefreshStore initialises a store backed by Redis. The caller is
// responsible for ensuring the Redis instance is reachable.
func NewRedisRefreshStore(cfg RedisRefreshStoreConfig) (*RedisRefreshStore, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   strings.TrimSpace(cfg.MasterName),
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   2,
	})
	return &RedisRefreshStore{client: client}, nil
}

// Close releases the Redis client resources.
func (s *RedisRefreshStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func tokenKey(token string) string { return redisKeyPrefix + "token:" + token }

func userSetKey(userID string) string { return redisKeyPrefix + "user:" + userID }

// Save stores the refresh token with its remaining lifetime as the TTL.
func (s *RedisRefreshStore) Save(token, userID string, expiresAt time.Time) error {
	ctx := context.Background()
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}
	payload := fmt.Sprintf("%s|%d", userID, expiresAt.UTC().Unix())
	if err := s.client.Set(ctx, tokenKey(token), payload, ttl).Err(); err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, userSetKey(userID), token).Err(); err != nil {
		return err
	}
	return s.client.ExpireAt(ctx, userSetKey(userID), expiresAt.UTC()).Err()
}

// Get retrieves the record for the provided token.
func (s *RedisRefreshStore) Get(token string) (RefreshRecord, bool, error) {
	ctx := context.Background()
	payload, err := s.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return RefreshRecord{}, false, nil
	}
	if err != nil {
		return RefreshRecord{}, false, err
	}
	parts := strings.SplitN(payload, "|", 2)
	if len(parts) != 2 {
		return RefreshRecord{}, false, fmt.Errorf("malformed refresh record for token")
	}
	var expiresUnix int64
	if _, err := fmt.Sscanf(parts[1], "%d", &expiresUnix); err != nil {
		return RefreshRecord{}, false, fmt.Errorf("malformed refresh expiry: %w", err)
	}
	return RefreshRecord{
		Token:     token,
		UserID:    parts[0],
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
	}, true, nil
}

// Delete removes the refresh token.
func (s *RedisRefreshStore) Delete(token string) error {
	ctx := context.Background()
	record, ok, err := s.Get(token)
	if err != nil {
		return err
	}
	if ok {
		if err := s.client.SRem(ctx, userSetKey(record.UserID), token).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, tokenKey(token)).Err()
}

// DeleteForUser removes every refresh token issued to the user.
func (s *RedisRefreshStore) DeleteForUser(userID string) error {
	ctx := context.Background()
	tokens, err := s.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, token := range tokens {
		if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, userSetKey(userID)).Err()
}

// PurgeExpired is a no-op: Redis expires token keys natively.
func (s *RedisRefreshStore) PurgeExpired(time.Time) error {
	return nil
}

// Ping verifies the Redis connection is reachable.
func (s *RedisRefreshStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	return s.client.Ping(ctx).Err()
}
