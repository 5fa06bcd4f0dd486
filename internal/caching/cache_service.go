package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkrental/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "linkrental"

type CacheService interface {
	// Resolve cache; only live rentals are stored
	GetRentalBySlug(ctx context.Context, slug string) (*models.RentalRequest, error)
	SetRentalBySlug(ctx context.Context, rental *models.RentalRequest, ttl time.Duration) error
	DeleteRentalBySlug(ctx context.Context, slug string) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

type redisCacheService struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := addr
	for _, scheme := range []string{"redis://", "rediss://"} {
		parsedAddr = strings.TrimPrefix(parsedAddr, scheme)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logger.Warn("Redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(pingErr))
	} else {
		logger.Debug("Redis connection established", zap.String("addr", parsedAddr))
	}

	return &redisCacheService{client: client, logger: logger}
}

func slugKey(slug string) string {
	return fmt.Sprintf("%s:rental:slug:%s", keyPrefix, slug)
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
}

func (r *redisCacheService) GetRentalBySlug(ctx context.Context, slug string) (*models.RentalRequest, error) {
	data, err := r.client.Get(ctx, slugKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var rental models.RentalRequest
	if err := json.Unmarshal(data, &rental); err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *redisCacheService) SetRentalBySlug(ctx context.Context, rental *models.RentalRequest, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(rental)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, slugKey(rental.Slug), data, ttl).Err()
}

func (r *redisCacheService) DeleteRentalBySlug(ctx context.Context, slug string) error {
	return r.client.Del(ctx, slugKey(slug)).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := rateLimitKey(key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Start the window on the first hit
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			r.logger.Warn("Failed to set rate limit window", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Close() error {
	return r.client.Close()
}
