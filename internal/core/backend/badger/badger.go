// Package badger 提供基于 BadgerDB 的本地磁盘后端实现
package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// Config BadgerDB 配置
type Config struct {
	// Dir 数据目录
	Dir string `json:"dir" yaml:"dir"`

	// EncryptionKey 静态加密密钥（16/24/32 字节）
	// 配置后该后端具备 at-rest-encryption 能力
	EncryptionKey string `json:"encryption_key" yaml:"encryption_key"`

	// GCInterval 值日志 GC 周期，默认 5 分钟
	GCInterval time.Duration `json:"gc_interval" yaml:"gc_interval"`
}

// Backend BadgerDB 后端实现
type Backend struct {
	db        *badgerdb.DB
	encrypted bool

	gcStop chan struct{}
	gcOnce sync.Once
}

// New 创建 BadgerDB 后端
func New(cfg *Config) (*Backend, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, fmt.Errorf("badger data dir is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Dir).
		WithLogger(nil).
		WithLoggingLevel(badgerdb.ERROR)

	encrypted := false
	if cfg.EncryptionKey != "" {
		opts = opts.
			WithEncryptionKey([]byte(cfg.EncryptionKey)).
			WithIndexCacheSize(64 << 20) // 加密模式要求索引缓存
		encrypted = true
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	b := &Backend{
		db:        db,
		encrypted: encrypted,
		gcStop:    make(chan struct{}),
	}

	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go b.runGC(interval)

	return b, nil
}

// runGC 周期性运行值日志垃圾回收
func (b *Backend) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.db.RunValueLogGC(0.7)
		case <-b.gcStop:
			return
		}
	}
}

// Get 获取值
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return nil
			}
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, errors.NewBackendError("badger", "Get", key, err)
	}
	return value, found, nil
}

// Set 设置值
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return errors.NewBackendError("badger", "Set", key, err)
	}
	return nil
}

// Delete 删除键
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return errors.NewBackendError("badger", "Delete", key, err)
	}
	return nil
}

// Keys 列出所有键（只读迭代，不预取值）
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewBackendError("badger", "Keys", "", err)
	}
	return keys, nil
}

// Close 关闭数据库
func (b *Backend) Close() error {
	b.gcOnce.Do(func() {
		close(b.gcStop)
	})
	return b.db.Close()
}

// Capabilities 声明后端能力
// 配置了加密密钥时额外具备静态加密能力
func (b *Backend) Capabilities() []backend.Capability {
	caps := []backend.Capability{backend.CapLocalOnly}
	if b.encrypted {
		caps = append(caps, backend.CapAtRestEncryption)
	}
	return caps
}

// Status 返回后端状态
func (b *Backend) Status(ctx context.Context) (backend.ProviderStatus, error) {
	status := backend.ProviderStatus{LastCheck: time.Now()}

	if b.db.IsClosed() {
		status.State = backend.StateUnhealthy
		status.Message = "database closed"
		return status, nil
	}

	lsm, vlog := b.db.Size()
	status.State = backend.StateHealthy
	status.UsedBytes = lsm + vlog

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
	byNS := make(map[string]*backend.NamespaceInfo)
	order := make([]string, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			ns := backend.NamespaceOf(key)

			info, ok := byNS[ns]
			if !ok {
				info = &backend.NamespaceInfo{Namespace: ns}
				byNS[ns] = info
				order = append(order, ns)
			}
			info.KeyCount++
			info.TotalBytes += int64(len(key)) + item.ValueSize()
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewBackendError("badger", "NamespaceInfo", "", err)
	}

	result := make([]backend.NamespaceInfo, 0, len(order))
	for _, ns := range order {
		result = append(result, *byNS[ns])
	}
	return result, nil
}
