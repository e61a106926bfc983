// Package redis caches user profiles in front of sqlite. The cache is
// strictly optional: every method degrades to a miss on error and the
// memory service works identically without it.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetassist/backend/internal/storage/models"
	"github.com/fleetassist/backend/pkg/config"
	"github.com/fleetassist/backend/pkg/utils"
)

const profileTTL = 30 * time.Minute

type Client struct {
	rdb *redis.Client
}

func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func profileKey(userID string) string {
	return "fleetassist:profile:" + utils.HashString(userID)
}

// GetProfile returns the cached profile, or nil on a miss.
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	data, err := c.rdb.Get(ctx, profileKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached profile: %w", err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return &profile, nil
}

func (c *Client) SetProfile(ctx context.Context, profile *models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := c.rdb.Set(ctx, profileKey(profile.ID), data, profileTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}
	return nil
}

func (c *Client) InvalidateProfile(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached profile: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
