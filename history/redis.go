package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisStream is the stream key used when none is configured.
const DefaultRedisStream = "browser-test-harness:history"

// RedisStore mirrors records into a Redis stream. Entries are added with XADD and an
// automatically generated ID, which can only append.
type RedisStore struct {
	redis  *redis.Client
	stream string
}

// OpenRedis connects to Redis. address may be a redis:// URL or a plain host:port.
func OpenRedis(address, stream string) (*RedisStore, error) {
	var opts *redis.Options
	if strings.Contains(address, "://") {
		var err error
		if opts, err = redis.ParseURL(address); err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
	} else {
		opts = &redis.Options{Addr: address}
	}
	return NewRedisStore(redis.NewClient(opts), stream), nil
}

func NewRedisStore(client *redis.Client, stream string) *RedisStore {
	if stream == "" {
		stream = DefaultRedisStream
	}
	return &RedisStore{redis: client, stream: stream}
}

func (r *RedisStore) Name() string {
	return fmt.Sprintf("redis://%s/%s", r.redis.Options().Addr, r.stream)
}

func (r *RedisStore) Append(ctx context.Context, rec Record) error {
	values := make(map[string]interface{}, len(Columns))
	for i, v := range rec.Row() {
		values[Columns[i]] = v
	}
	if err := r.redis.XAdd(ctx, &redis.XAddArgs{Stream: r.stream, Values: values}).Err(); err != nil {
		return &StoreWriteError{Backend: r.Name(), RecordID: rec.RecordID, Err: err}
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}
