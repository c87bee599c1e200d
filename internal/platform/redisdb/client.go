package redisdb

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studylane/studylane-backend/internal/platform/envutil"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

type Client struct {
	RDB *goredis.Client
	log *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}

	addr := envutil.Str("REDIS_ADDR", "localhost:6379")
	password := envutil.Str("REDIS_PASSWORD", "")
	db := envutil.Int("REDIS_DB", 0)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisdb: ping: %w", err)
	}

	return &Client{
		RDB: rdb,
		log: log.With("client", "RedisDB"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.RDB == nil {
		return nil
	}
	err := c.RDB.Close()
	c.RDB = nil
	return err
}
