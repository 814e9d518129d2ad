package silosession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a [Store] for server-side deployments where several edge
// processes must see the same session — one refresh by any process is
// immediately visible to the rest.
//
// Keys are <prefix>:access_token, <prefix>:refresh_token, and
// <prefix>:token_expires_at (epoch milliseconds). Writes use a MULTI/EXEC
// pipeline so the pair is replaced atomically.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store on client under the given key prefix,
// typically one prefix per end user ("sess:<user>").
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, fileKeyAccess)
}

func (s *RedisStore) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, fileKeyRefresh)
}

func (s *RedisStore) SaveTokens(ctx context.Context, access, refresh string, expiresAt time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(fileKeyAccess), access, 0)
		pipe.Set(ctx, s.key(fileKeyRefresh), refresh, 0)
		if expiresAt.IsZero() {
			pipe.Del(ctx, s.key(fileKeyExpiresAt))
		} else {
			pipe.Set(ctx, s.key(fileKeyExpiresAt), strconv.FormatInt(expiresAt.UnixMilli(), 10), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("token store: save: %w", err)
	}
	return nil
}

func (s *RedisStore) ExpiresAt(ctx context.Context) (time.Time, error) {
	raw, err := s.get(ctx, fileKeyExpiresAt)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("token store: corrupt expiry %q: %w", raw, err)
	}
	return time.UnixMilli(millis), nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.client.Del(ctx,
		s.key(fileKeyAccess),
		s.key(fileKeyRefresh),
		s.key(fileKeyExpiresAt),
	).Err()
	if err != nil {
		return fmt.Errorf("token store: clear: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, name string) (string, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token store: read: %w", err)
	}
	return val, nil
}
