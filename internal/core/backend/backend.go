// Package backend 定义存储后端的能力接口与注册表
//
// 接口层次结构:
//   - Backend: 基础键值后端接口（所有后端必须实现）
//   - Introspector: 可选的运行状态自省接口
//   - CapabilityAdvertiser: 可选的能力声明接口
package backend

import (
	"context"
	"time"
)

// =============================================================================
// 核心接口（所有后端必须实现）
// =============================================================================

// Backend 存储后端核心接口
// 值为不透明字节串，序列化由调用方负责
type Backend interface {
	// Get 获取值；键不存在时返回 (nil, false, nil)，不视为错误
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set 设置值并指定 TTL，ttl <= 0 表示永不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除键，键不存在不返回错误
	Delete(ctx context.Context, key string) error

	// Keys 列出所有键（用于命名空间枚举）
	Keys(ctx context.Context) ([]string, error)

	// Close 关闭后端连接
	Close() error
}

// =============================================================================
// 扩展接口（可选实现）
// =============================================================================

// Introspector 运行状态自省接口（可选）
// 未实现此接口的后端在管理门面中显示为"可用但无详情"
type Introspector interface {
	// Status 返回后端当前状态
	Status(ctx context.Context) (ProviderStatus, error)

	// NamespaceInfo 返回按命名空间聚合的键统计
	NamespaceInfo(ctx context.Context) ([]NamespaceInfo, error)
}

// CapabilityAdvertiser 能力声明接口（可选）
// 注册时未显式指定能力的后端通过此接口声明自身能力
type CapabilityAdvertiser interface {
	Capabilities() []Capability
}

// =============================================================================
// 能力标签
// =============================================================================

// Capability 后端能力标签，参与选择优先级判定
type Capability string

const (
	// CapAtRestEncryption 支持静态加密
	CapAtRestEncryption Capability = "at-rest-encryption"

	// CapLocalOnly 纯本地后端（无网络依赖）
	CapLocalOnly Capability = "local-only"

	// CapDurableRemote 持久化远程后端
	CapDurableRemote Capability = "durable-remote"
)

// =============================================================================
// 状态类型
// =============================================================================

// State 后端健康状态
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"  // 降级，部分功能不可用
	StateUnhealthy State = "unhealthy" // 不健康，完全不可用
	StateUnknown   State = "unknown"   // 后端不支持自省
)

// ProviderStatus 后端状态信息
type ProviderStatus struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	KeyCount  int64     `json:"key_count"`
	UsedBytes int64     `json:"used_bytes"`
	LastCheck time.Time `json:"last_check"`
}

// NamespaceInfo 命名空间统计信息
type NamespaceInfo struct {
	Namespace  string `json:"namespace"`
	KeyCount   int64  `json:"key_count"`
	TotalBytes int64  `json:"total_bytes"`
}

// NamespaceOf 提取键的命名空间（第一个 '.' 之前的部分）
// 无分隔符的键自成一个命名空间
func NamespaceOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i]
		}
	}
	return key
}
