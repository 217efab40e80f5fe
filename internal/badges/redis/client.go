package redis

import (
	"context"
	"fmt"
	"time"

	"ms-badging/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Connect opens a client and checks the connection before handing it out.
func Connect(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", addr, err))
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s for badge locks", addr))
	return client, nil
}
