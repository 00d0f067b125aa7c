// Package redis 提供 Redis 后端实现
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// Config Redis 配置
type Config struct {
	// Addr Redis 地址，如 "localhost:6379"
	Addr string `json:"addr" yaml:"addr"`

	// Password 密码
	Password string `json:"password" yaml:"password"`

	// DB 数据库编号
	DB int `json:"db" yaml:"db"`

	// PoolSize 连接池大小
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// KeyPrefix 键前缀，用于多实例共用一个 Redis
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// DialTimeout 连接超时
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// Backend Redis 后端实现
type Backend struct {
	client    *redis.Client
	keyPrefix string
}

// New 基于现有客户端创建 Redis 后端
func New(client *redis.Client, keyPrefix string) *Backend {
	return &Backend{client: client, keyPrefix: keyPrefix}
}

// NewFromConfig 从配置创建 Redis 后端并验证连接
func NewFromConfig(cfg *Config) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return New(client, cfg.KeyPrefix), nil
}

// buildKey 构建 Redis 键
func (b *Backend) buildKey(key string) string {
	return b.keyPrefix + key
}

// Get 获取值
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.buildKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.NewBackendError("redis", "Get", key, err)
	}
	return data, true, nil
}

// Set 设置值
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(ctx, b.buildKey(key), value, ttl).Err(); err != nil {
		return errors.NewBackendError("redis", "Set", key, err)
	}
	return nil
}

// Delete 删除键
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.buildKey(key)).Err(); err != nil {
		return errors.NewBackendError("redis", "Delete", key, err)
	}
	return nil
}

// Keys 列出所有键（SCAN 遍历，剥离前缀）
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string

	iter := b.client.Scan(ctx, 0, b.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.NewBackendError("redis", "Keys", "", err)
	}
	return keys, nil
}

// Close 关闭客户端连接
func (b *Backend) Close() error {
	return b.client.Close()
}

// Capabilities 声明后端能力
func (b *Backend) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapDurableRemote}
}

// Status 返回后端状态（PING + DBSIZE）
func (b *Backend) Status(ctx context.Context) (backend.ProviderStatus, error) {
	status := backend.ProviderStatus{LastCheck: time.Now()}

	if err := b.client.Ping(ctx).Err(); err != nil {
		status.State = backend.StateUnhealthy
		status.Message = err.Error()
		return status, nil
	}

	status.State = backend.StateHealthy

	// 带前缀时 DBSIZE 统计不准，退化为 SCAN 计数
	if b.keyPrefix == "" {
		size, err := b.client.DBSize(ctx).Result()
		if err == nil {
			status.KeyCount = size
			return status, nil
		}
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		status.State = backend.StateDegraded
		status.Message = err.Error()
		return status, nil
	}
	status.KeyCount = int64(len(keys))
	return status, nil
}

// NamespaceInfo 返回按命名空间聚合的统计
func (b *Backend) NamespaceInfo(ctx context.Context) ([]backend.NamespaceInfo, error) {
	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}

	byNS := make(map[string]*backend.NamespaceInfo)
	order := make([]string, 0)
	for _, key := range keys {
		ns := backend.NamespaceOf(key)
		info, ok := byNS[ns]
		if !ok {
			info = &backend.NamespaceInfo{Namespace: ns}
			byNS[ns] = info
			order = append(order, ns)
		}
		info.KeyCount++

		size, err := b.client.StrLen(ctx, b.buildKey(key)).Result()
		if err == nil {
			info.TotalBytes += size + int64(len(key))
		}
	}

	result := make([]backend.NamespaceInfo, 0, len(order))
	for _, ns := range order {
		result = append(result, *byNS[ns])
	}
	return result, nil
}
