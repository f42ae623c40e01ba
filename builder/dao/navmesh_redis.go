package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flswld/halo/logger"
	"github.com/go-redis/redis/v8"
)

const RedisKeyPrefix = "NAVBUILD"

// MaxLockAliveTime bounds a level lock when the config does not. ms
const MaxLockAliveTime = 3600 * 1000

func (d *Dao) GetRedisTileKey(meshID string, x, y int32) string {
	return fmt.Sprintf("%s:TILE:%s:%d:%d", RedisKeyPrefix, meshID, x, y)
}

func (d *Dao) GetRedisLevelLockKey(worldGUID string) string {
	return RedisKeyPrefix + ":LEVEL_LOCK:" + worldGUID
}

func (d *Dao) rdb() redis.Cmdable {
	if d.redisCluster != nil {
		return d.redisCluster
	}
	return d.redis
}

// GetCachedTile returns the tile id cached for a persisted tile.
func (d *Dao) GetCachedTile(ctx context.Context, meshID string, x, y int32) (string, bool) {
	tileID, err := d.rdb().Get(ctx, d.GetRedisTileKey(meshID, x, y)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error("redis get tile error: %v", err)
		}
		return "", false
	}
	return tileID, true
}

// SetCachedTile marks a tile as persisted. Tiles are write-once so the key never expires.
func (d *Dao) SetCachedTile(ctx context.Context, meshID string, x, y int32, tileID string) error {
	return d.rdb().Set(ctx, d.GetRedisTileKey(meshID, x, y), tileID, 0).Err()
}

// DistLock takes the build lock of a level and reports whether it was acquired.
// Without redis every lock succeeds.
func (d *Dao) DistLock(ctx context.Context, worldGUID string, ttl time.Duration) (bool, error) {
	if !d.hasRedis() {
		return true, nil
	}
	if ttl <= 0 {
		ttl = time.Millisecond * time.Duration(MaxLockAliveTime)
	}
	result, err := d.rdb().SetNX(ctx,
		d.GetRedisLevelLockKey(worldGUID),
		time.Now().UnixMilli(),
		ttl).Result()
	if err != nil {
		logger.Error("redis lock setnx error: %v", err)
		return false, err
	}
	return result, nil
}

func (d *Dao) DistUnlock(ctx context.Context, worldGUID string) {
	if !d.hasRedis() {
		return
	}
	result, err := d.rdb().Del(ctx, d.GetRedisLevelLockKey(worldGUID)).Result()
	if err != nil {
		logger.Error("redis lock del error: %v", err)
		return
	}
	if result == 0 {
		logger.Error("redis lock del result is fail, guid: %v", worldGUID)
		return
	}
}
