package redisclient

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/personaforge/personaforge-backend/internal/platform/logger"
)

// New connects and pings a redis client. An empty addr means redis is not
// configured; callers fall back to in-process stores.
func New(addr, password string, db int, baseLog *logger.Logger) (*goredis.Client, error) {
	log := baseLog.With("client", "redis")
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("Connected to redis", "addr", addr)
	return rdb, nil
}
