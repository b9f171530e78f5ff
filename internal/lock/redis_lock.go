package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis版のロックマネージャ。SET NX + TTLでリースを表現する。
// プロセスを跨いで排他したいデプロイ向け。
type RedisLockManager struct {
	client   *redis.Client
	leaseTTL time.Duration
}

func NewRedisLockManager(client *redis.Client) *RedisLockManager {
	return &RedisLockManager{client: client, leaseTTL: defaultLeaseTTL}
}

func lockKey(resourceType string, resourceID int64) string {
	return fmt.Sprintf("lock:%s:%d", resourceType, resourceID)
}

func (m *RedisLockManager) Acquire(ctx context.Context, resourceType string, resourceID int64) error {
	//TTL付きなのでstale回収はRedis任せ
	ok, err := m.client.SetNX(ctx, lockKey(resourceType, resourceID), uuid.NewString(), m.leaseTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return &BusyError{ResourceType: resourceType, ResourceID: resourceID}
	}
	return nil
}

func (m *RedisLockManager) Release(ctx context.Context, resourceType string, resourceID int64) error {
	return m.client.Del(ctx, lockKey(resourceType, resourceID)).Err()
}
