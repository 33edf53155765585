package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abriesk/psychobotV1/config"
	"github.com/abriesk/psychobotV1/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	slotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, slotsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		slotsTTL: slotsTTL,
	}
}

func (c *RedisCache) GetAvailableSlots(ctx context.Context, onlineOnly *bool) ([]domain.Slot, error) {
	data, err := c.client.Get(ctx, slotsKey(onlineOnly)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var slots []domain.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *RedisCache) SetAvailableSlots(ctx context.Context, onlineOnly *bool, slots []domain.Slot) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotsKey(onlineOnly), payload, c.slotsTTL).Err()
}

// InvalidateSlots drops every cached slot listing. Called after any slot
// mutation so browsing clients never see a stale AVAILABLE entry for long.
func (c *RedisCache) InvalidateSlots(ctx context.Context) error {
	return c.client.Del(ctx, slotsKey(nil), slotsKey(boolPtr(true)), slotsKey(boolPtr(false))).Err()
}

func (c *RedisCache) GetUserLanguage(ctx context.Context, userID int64) (string, error) {
	lang, err := c.client.Get(ctx, langKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return lang, nil
}

func (c *RedisCache) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	return c.client.Set(ctx, langKey(userID), lang, time.Hour).Err()
}

func slotsKey(onlineOnly *bool) string {
	if onlineOnly == nil {
		return "cache:slots:all"
	}
	return fmt.Sprintf("cache:slots:online:%t", *onlineOnly)
}

func langKey(userID int64) string {
	return fmt.Sprintf("cache:user:%d:lang", userID)
}

func boolPtr(b bool) *bool {
	return &b
}
