package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

const redisKeyPrefix = "console:session:"

// replaceAccessScript sets the access token only while the hash still holds the expected refresh token
var replaceAccessScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "refresh_token") ~= ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], "access_token", ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

// RedisRepo stores each session as a hash with the access_token and refresh_token fields
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepo wraps a connected client. A zero ttl keeps credentials until cleared.
func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

// Ping verifies the connection at startup
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Ping] %w", err)
	}
	return nil
}

func (r *RedisRepo) Save(ctx context.Context, sessionID string, pair Pair) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	key := redisKeyPrefix + sessionID

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, KeyAccessToken, pair.AccessToken, KeyRefreshToken, pair.RefreshToken)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("[RedisRepo Save] %w", err)
	}
	return nil
}

func (r *RedisRepo) ReplaceAccess(ctx context.Context, sessionID, expectedRefresh, access string) error {
	if sessionID == "" || expectedRefresh == "" {
		return errors.ErrCredentialsChanged
	}
	replaced, err := replaceAccessScript.Run(ctx, r.client,
		[]string{redisKeyPrefix + sessionID},
		expectedRefresh, access, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("[RedisRepo ReplaceAccess] %w", err)
	}
	if replaced == 0 {
		return errors.ErrCredentialsChanged
	}
	return nil
}

func (r *RedisRepo) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Clear] %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID, key string) (string, error) {
	value, err := r.client.HGet(ctx, redisKeyPrefix+sessionID, key).Result()
	if err == redis.Nil || (err == nil && value == "") {
		return "", errors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[RedisRepo Get] %w", err)
	}
	return value, nil
}
