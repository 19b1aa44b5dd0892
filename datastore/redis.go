package datastore

import (
	"context"
	"fmt"

	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
	"github.com/redis/go-redis/v9"
)

// RedisConfig is read from the Redis section.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// FlushOnClose empties the selected database when the test ends.
	FlushOnClose bool
}

func LoadRedisConfig(cfg *config.Config) RedisConfig {
	c := RedisConfig{Addr: "localhost:6379"}
	if cfg == nil {
		return c
	}
	c.Addr = cfg.SectionValue("Redis", "Addr", c.Addr)
	c.Password = cfg.SectionValue("Redis", "Password", "")
	c.DB = cfg.Int("Redis", "DB", 0)
	c.FlushOnClose = cfg.Bool("Redis", "FlushOnClose", false)
	return c
}

// RedisStore keeps each map in a hash named prefix:key.
type RedisStore struct {
	redis  *redis.Client
	config RedisConfig
}

// NewRedisBackend connects on Create and fails unless the server answers a PING.
func NewRedisBackend(c RedisConfig) driver.Backend[*RedisStore] {
	return driver.Funcs[*RedisStore]{
		CreateFunc: func(ctx context.Context) (*RedisStore, error) {
			rdb := redis.NewClient(&redis.Options{
				Addr:     c.Addr,
				Password: c.Password,
				DB:       c.DB,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				_ = rdb.Close()
				return nil, fmt.Errorf("connecting to redis at %s: %w", c.Addr, err)
			}
			return &RedisStore{redis: rdb, config: c}, nil
		},
		DisposeFunc: func(ctx context.Context, r *RedisStore) error {
			if r.config.FlushOnClose {
				if err := r.Reset(ctx); err != nil {
					_ = r.Close()
					return err
				}
			}
			return r.Close()
		},
	}
}

func (r *RedisStore) Client() *redis.Client { return r.redis }

func (r *RedisStore) DSN() string {
	return fmt.Sprintf("redis://%s/%d", r.redis.Options().Addr, r.redis.Options().DB)
}

func (r *RedisStore) WriteMap(ctx context.Context, prefix, key string, data map[string]string) error {
	name := addPrefix(prefix, key)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, name)
		if len(data) > 0 {
			pipe.HSet(ctx, name, data)
		}
		return nil
	})
	return err
}

func (r *RedisStore) GetMap(ctx context.Context, prefix, key string) (map[string]string, error) {
	return r.redis.HGetAll(ctx, addPrefix(prefix, key)).Result()
}

// Reset flushes the selected database.
func (r *RedisStore) Reset(ctx context.Context) error {
	return r.redis.FlushDB(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.redis.Close()
}
