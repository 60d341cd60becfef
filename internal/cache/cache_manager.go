package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CacheManager groups the helpers used by the repositories
type CacheManager struct {
	Course *CacheHelper
	Lesson *CacheHelper
	User   *CacheHelper

	client *redis.Client
}

// NewCacheManager builds all helpers; a nil client yields a manager that never caches
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Course: NewCacheHelper(client, CourseCacheConfig.Prefix),
		Lesson: NewCacheHelper(client, LessonCacheConfig.Prefix),
		User:   NewCacheHelper(client, UserCacheConfig.Prefix),
		client: client,
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
