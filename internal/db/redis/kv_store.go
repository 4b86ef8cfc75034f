package redisdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	applog "flowbuilder/internal/platform/log"
)

// KVStore Redis 字符串键值存储，不设置过期时间
type KVStore struct {
	client *redis.Client
	prefix string
}

// KVStoreConfig Redis 存储配置
type KVStoreConfig struct {
	Client    *redis.Client
	KeyPrefix string // 默认 "flowbuilder:"
}

// NewKVStore 创建 Redis 键值存储
func NewKVStore(cfg KVStoreConfig) *KVStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "flowbuilder:"
	}
	return &KVStore{client: cfg.Client, prefix: cfg.KeyPrefix}
}

// Key 返回带前缀的 Redis key
func (s *KVStore) Key(key string) string {
	return s.prefix + key
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET: %w", err)
	}
	return v, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	applog.Debug("[Storage/Redis] Key written", "key", s.Key(key), "bytes", len(value))
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

// Ping 检查连接
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 关闭客户端
func (s *KVStore) Close() error {
	return s.client.Close()
}
