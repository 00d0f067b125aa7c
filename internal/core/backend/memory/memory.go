// Package memory 提供内存后端实现
package memory

import (
	"context"
	"sync"
	"time"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// item 存储项
type item struct {
	value    []byte
	expireAt time.Time
}

// isExpired 检查是否过期
func (i *item) isExpired() bool {
	if i.expireAt.IsZero() {
		return false
	}
	return time.Now().After(i.expireAt)
}

// Backend 内存后端实现
// 纯本地、无网络依赖，作为系统的最小可用后端
type Backend struct {
	mu     sync.RWMutex
	data   map[string]*item
	closed bool

	cleanupStop chan struct{}
	cleanupOnce sync.Once
}

// New 创建内存后端，并启动过期清理循环
func New() *Backend {
	b := &Backend{
		data:        make(map[string]*item),
		cleanupStop: make(chan struct{}),
	}
	go b.cleanupLoop(time.Minute)
	return b
}

// cleanupLoop 周期性清理过期键
func (b *Backend) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cleanupExpired()
		case <-b.cleanupStop:
			return
		}
	}
}

func (b *Backend) cleanupExpired() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, it := range b.data {
		if it.isExpired() {
			delete(b.data, key)
		}
	}
}

// Get 获取值
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, errors.ErrClosed
	}

	it, ok := b.data[key]
	if !ok || it.isExpired() {
		return nil, false, nil
	}
	return it.value, true, nil
}

// Set 设置值
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrClosed
	}

	expireAt := time.Time{}
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}

	// 复制值，防止调用方后续修改
	v := append([]byte{}, value...)
	b.data[key] = &item{value: v, expireAt: expireAt}
	return nil
}

// Delete 删除键
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.ErrClosed
	}

	delete(b.data, key)
	return nil
}

// Keys 列出所有未过期的键
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.ErrClosed
	}

	keys := make([]string, 0, len(b.data))
	for key, it := range b.data {
		if !it.isExpired() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close 关闭后端
func (b *Backend) Close() error {
	b.cleanupOnce.Do(func() {
		close(b.cleanupStop)
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.data = make(map[string]*item)
	return nil
}

// Capabilities 声明后端能力
func (b *Backend) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapLocalOnly}
}

// Status 返回后端状态
func (b *Backend) Status(ctx context.Context) (backend.ProviderStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := backend.StateHealthy
	if b.closed {
		state = backend.StateUnhealthy
	}

	var usedBytes int64
	for key, it := range b.data {
		usedBytes += int64(len(key) + len(it.value))
	}

	return backend.ProviderStatus{
		State:     state,
		KeyCount:  int64(len(b.data)),
		UsedBytes: usedBytes,
		LastCheck: time.Now(),
	}, nil
}

// NamespaceInfo 返回按命名空间聚合的统计
func (b *Backend) NamespaceInfo(ctx context.Context) ([]backend.NamespaceInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.ErrClosed
	}

	byNS := make(map[string]*backend.NamespaceInfo)
	order := make([]string, 0)
	for key, it := range b.data {
		if it.isExpired() {
			continue
		}
		ns := backend.NamespaceOf(key)
		info, ok := byNS[ns]
		if !ok {
			info = &backend.NamespaceInfo{Namespace: ns}
			byNS[ns] = info
			order = append(order, ns)
		}
		info.KeyCount++
		info.TotalBytes += int64(len(key) + len(it.value))
	}

	result := make([]backend.NamespaceInfo, 0, len(order))
	for _, ns := range order {
		result = append(result, *byNS[ns])
	}
	return result, nil
}
