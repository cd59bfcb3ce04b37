package loginlimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordFailureScript counts one failure atomically. ARGV: now ms, window ms.
var recordFailureScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local attempts, first = 1, now
local raw = redis.call('GET', KEYS[1])
if raw then
	local ok, info = pcall(cjson.decode, raw)
	if ok and type(info) == 'table'
		and type(info.attempts) == 'number'
		and type(info.firstAttemptTimestamp) == 'number'
		and now - info.firstAttemptTimestamp < window then
		attempts = info.attempts + 1
		first = info.firstAttemptTimestamp
	end
end
local encoded = string.format('{"attempts":%d,"firstAttemptTimestamp":%d}', attempts, first)
redis.call('SET', KEYS[1], encoded, 'PX', string.format('%d', first + window + 60000 - now))
return encoded
`)

// RedisStorage shares limiter records between API replicas
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to url and checks the connection
func NewRedisStorage(ctx context.Context, url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStorage{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// RecordFailure runs the counting script on the server
func (r *RedisStorage) RecordFailure(ctx context.Context, key string, now time.Time, window time.Duration) (AttemptInfo, error) {
	raw, err := recordFailureScript.Run(ctx, r.client, []string{key}, now.UnixMilli(), window.Milliseconds()).Text()
	if err != nil {
		return AttemptInfo{}, fmt.Errorf("recording failure for %s: %w", key, err)
	}
	var info AttemptInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return AttemptInfo{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	return info, nil
}
