package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"desktop-realtime/internal/model"
)

// DefaultDetailTTL 데스크톱 상세 캐시 유지 시간
const DefaultDetailTTL = 30 * time.Second

// RedisClient wraps the Redis client for desktop detail caching
type RedisClient struct {
	client    *redis.Client
	detailTTL time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int, detailTTL time.Duration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	if detailTTL <= 0 {
		detailTTL = DefaultDetailTTL
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client, detailTTL: detailTTL}, nil
}

// Client exposes the underlying client for presence and pub/sub
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func detailKey(desktopID int64) string {
	return fmt.Sprintf("desktop:%d:detail", desktopID)
}

// GetDetail returns a cached desktop detail. ok is false on a miss
func (r *RedisClient) GetDetail(ctx context.Context, desktopID int64) (*model.DesktopDetail, bool, error) {
	data, err := r.client.Get(ctx, detailKey(desktopID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var detail model.DesktopDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		// 깨진 엔트리는 미스로 취급
		r.client.Del(ctx, detailKey(desktopID))
		return nil, false, nil
	}
	return &detail, true, nil
}

// SetDetail caches a desktop detail
func (r *RedisClient) SetDetail(ctx context.Context, detail *model.DesktopDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, detailKey(detail.Desktop.ID), data, r.detailTTL).Err()
}

// InvalidateDetail drops the cached detail after a mutation
func (r *RedisClient) InvalidateDetail(ctx context.Context, desktopID int64) {
	if err := r.client.Del(ctx, detailKey(desktopID)).Err(); err != nil {
		log.Printf("[Redis] Failed to invalidate desktop %d: %v", desktopID, err)
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Health checks if Redis is healthy
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
