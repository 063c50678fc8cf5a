package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/clerapp/platform/pkg/common/config"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// GetRedis returns the shared client for the OAuth state store. The first
// successful call pings the server; an unreachable server is reported to the
// caller and not cached, so the next call dials again.
func GetRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if redisClient != nil {
		return redisClient, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", client.Options().Addr, err)
	}

	logger.Log.WithField("addr", client.Options().Addr).Info("Connected to Redis")
	redisClient = client
	return redisClient, nil
}

func CloseRedis() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	return err
}
