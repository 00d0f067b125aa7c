// Package metrics 提供路由层的进程内监控指标
package metrics

import (
	"sync/atomic"
	"time"

	"polystore/internal/errors"
)

// =============================================================================
// 后端操作指标
// =============================================================================

// BackendMetrics 单个后端的操作指标
type BackendMetrics struct {
	// 基本操作计数
	GetCount    atomic.Int64 // Get 操作次数
	SetCount    atomic.Int64 // Set 操作次数
	DeleteCount atomic.Int64 // Delete 操作次数
	KeysCount   atomic.Int64 // Keys 操作次数

	// 错误计数
	ErrorCount    atomic.Int64 // 错误总数
	NotFoundCount atomic.Int64 // NotFound 结果数

	// 降级计数
	FallbackCount atomic.Int64 // 该后端作为降级目标被尝试的次数

	// 延迟统计（纳秒）
	GetLatencySum    atomic.Int64 // Get 延迟累计
	SetLatencySum    atomic.Int64 // Set 延迟累计
	DeleteLatencySum atomic.Int64 // Delete 延迟累计
}

// NewBackendMetrics 创建后端指标
func NewBackendMetrics() *BackendMetrics {
	return &BackendMetrics{}
}

// RecordGet 记录 Get 操作
func (m *BackendMetrics) RecordGet(duration time.Duration, err error) {
	m.GetCount.Add(1)
	m.GetLatencySum.Add(int64(duration))
	if err != nil {
		if errors.IsNotFound(err) {
			m.NotFoundCount.Add(1)
			return
		}
		m.ErrorCount.Add(1)
	}
}

// RecordSet 记录 Set 操作
func (m *BackendMetrics) RecordSet(duration time.Duration, err error) {
	m.SetCount.Add(1)
	m.SetLatencySum.Add(int64(duration))
	if err != nil {
		m.ErrorCount.Add(1)
	}
}

// RecordDelete 记录 Delete 操作
func (m *BackendMetrics) RecordDelete(duration time.Duration, err error) {
	m.DeleteCount.Add(1)
	m.DeleteLatencySum.Add(int64(duration))
	if err != nil {
		m.ErrorCount.Add(1)
	}
}

// RecordKeys 记录 Keys 操作
func (m *BackendMetrics) RecordKeys(err error) {
	m.KeysCount.Add(1)
	if err != nil {
		m.ErrorCount.Add(1)
	}
}

// RecordFallback 记录降级尝试
func (m *BackendMetrics) RecordFallback() {
	m.FallbackCount.Add(1)
}

// Snapshot 指标快照（供管理门面读取）
type Snapshot struct {
	Gets      int64 `json:"gets"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Errors    int64 `json:"errors"`
	NotFound  int64 `json:"not_found"`
	Fallbacks int64 `json:"fallbacks"`

	// 平均延迟（纳秒），无操作时为 0
	AvgGetLatencyNs int64 `json:"avg_get_latency_ns"`
	AvgSetLatencyNs int64 `json:"avg_set_latency_ns"`
}

// Snapshot 读取当前指标快照
func (m *BackendMetrics) Snapshot() Snapshot {
	s := Snapshot{
		Gets:      m.GetCount.Load(),
		Sets:      m.SetCount.Load(),
		Deletes:   m.DeleteCount.Load(),
		Errors:    m.ErrorCount.Load(),
		NotFound:  m.NotFoundCount.Load(),
		Fallbacks: m.FallbackCount.Load(),
	}
	if s.Gets > 0 {
		s.AvgGetLatencyNs = m.GetLatencySum.Load() / s.Gets
	}
	if s.Sets > 0 {
		s.AvgSetLatencyNs = m.SetLatencySum.Load() / s.Sets
	}
	return s
}
