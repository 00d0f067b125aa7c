// Package cached 提供读穿透 LRU 缓存包装后端
package cached

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// entry 缓存条目
type entry struct {
	value    []byte
	expireAt time.Time
}

func (e *entry) isExpired() bool {
	if e.expireAt.IsZero() {
		return false
	}
	return time.Now().After(e.expireAt)
}

// Backend 读穿透缓存包装
// Get 命中缓存时不触达内层后端；Set/Delete 直写内层并更新缓存。
// 能力与自省均透传内层后端。
type Backend struct {
	inner    backend.Backend
	cache    *lru.Cache[string, *entry]
	cacheTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// New 创建缓存包装后端
// size 为 LRU 容量；cacheTTL 限制缓存条目寿命，0 表示仅受 LRU 驱逐约束
func New(inner backend.Backend, size int, cacheTTL time.Duration) (*Backend, error) {
	cache, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &Backend{inner: inner, cache: cache, cacheTTL: cacheTTL}, nil
}

// Get 获取值（Read-Through）
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := b.cache.Get(key); ok && !e.isExpired() {
		b.hits.Add(1)
		return e.value, true, nil
	}
	b.misses.Add(1)

	value, found, err := b.inner.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		b.cacheAdd(key, value, 0)
	}
	return value, found, nil
}

// Set 直写内层后端并更新缓存
// 缓存条目寿命不超过条目自身的 TTL，内层过期后不会继续从缓存命中
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.inner.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	b.cacheAdd(key, value, ttl)
	return nil
}

// Delete 删除键并逐出缓存
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.inner.Delete(ctx, key); err != nil {
		return err
	}
	b.cache.Remove(key)
	return nil
}

// Keys 透传内层后端
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	return b.inner.Keys(ctx)
}

// Close 清空缓存并关闭内层后端
func (b *Backend) Close() error {
	b.cache.Purge()
	return b.inner.Close()
}

// cacheAdd 写入缓存条目，寿命取 itemTTL 与 cacheTTL 中较小者（0 视为无限制）
func (b *Backend) cacheAdd(key string, value []byte, itemTTL time.Duration) {
	ttl := b.cacheTTL
	if itemTTL > 0 && (ttl == 0 || itemTTL < ttl) {
		ttl = itemTTL
	}

	expireAt := time.Time{}
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	b.cache.Add(key, &entry{value: value, expireAt: expireAt})
}

// Stats 缓存命中统计
func (b *Backend) Stats() (hits, misses int64) {
	return b.hits.Load(), b.misses.Load()
}

// Capabilities 透传内层后端的能力声明
func (b *Backend) Capabilities() []backend.Capability {
	if adv, ok := b.inner.(backend.CapabilityAdvertiser); ok {
		return adv.Capabilities()
	}
	return nil
}

// Status 透传内层后端的状态
// 内层不支持自省时返回 ErrUnsupported
func (b *Backend) Status(ctx context.Context) (backend.ProviderStatus, error) {
	if in, ok := b.inner.(backend.Introspector); ok {
		return in.Status(ctx)
	}
	return backend.ProviderStatus{}, errors.ErrUnsupported
}

// NamespaceInfo 透传内层后端的命名空间统计
// 内层不支持自省时返回 ErrUnsupported
func (b *Backend) NamespaceInfo(ctx context.Context) ([]backend.NamespaceInfo, error) {
	if in, ok := b.inner.(backend.Introspector); ok {
		return in.NamespaceInfo(ctx)
	}
	return nil, errors.ErrUnsupported
}
