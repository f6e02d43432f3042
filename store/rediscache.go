package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utesolo/matchkit/core"
)

// ScoreCache 是 Redis 实现的在线打分结果缓存。
// 同一模型工件对同一特征向量的打分结果是确定的，命中缓存可以跳过整条推理链路。
// 生产环境常用，支持持久化、集群、哨兵等。
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreCache(addr string, db int, ttl time.Duration) (*ScoreCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &ScoreCache{client: client, ttl: ttl}, nil
}

func (c *ScoreCache) Name() string { return "redis" }

// Key 生成缓存键：同一工件 + 同一特征向量 → 同一键。
// 特征向量序列化后取 SHA1，避免键过长。
func (c *ScoreCache) Key(artifactID string, vec core.FeatureVector) string {
	raw, _ := json.Marshal(vec.Values())
	sum := sha1.Sum(raw)
	return fmt.Sprintf("matchkit:score:%s:%s", artifactID, hex.EncodeToString(sum[:]))
}

// Get 读取缓存的打分结果。未命中返回 (nil, nil)。
func (c *ScoreCache) Get(ctx context.Context, key string) (*core.ScoreResult, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result core.ScoreResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Set 写入打分结果，ttl 为 0 时永不过期。
func (c *ScoreCache) Set(ctx context.Context, key string, result *core.ScoreResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *ScoreCache) Close() error {
	return c.client.Close()
}
