package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"nextrole_backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 建立 Redis 连接并用带超时的 Ping 验证可达性。
// 连接池参数来自配置，未配置时使用兜底值。
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 50
	}
	minIdle := cfg.MinIdleConns
	if minIdle <= 0 {
		minIdle = 5
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: minIdle,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	log.Printf("Redis connection established (%s)", addr)
	return rdb, nil
}
