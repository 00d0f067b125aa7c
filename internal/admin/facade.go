// Package admin 管理门面：聚合各后端的运行状态、指标与命名空间统计
//
// 门面只读，不参与路由决策。状态采集并发执行，单个后端的故障
// 体现为该后端的 unhealthy 状态，不会使整个采集失败。
package admin

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"polystore/internal/core/backend"
	"polystore/internal/core/log"
	"polystore/internal/core/metrics"
	"polystore/internal/errors"
)

// 单个后端状态采集的超时上限
const defaultProbeTimeout = 5 * time.Second

// ProviderReport 单个后端的聚合报告
type ProviderReport struct {
	backend.ProviderStatus
	Capabilities []backend.Capability `json:"capabilities"`
	Metrics      metrics.Snapshot     `json:"metrics"`
}

// Facade 管理门面
type Facade struct {
	registry     *backend.Registry
	logger       log.Logger
	probeTimeout time.Duration
}

// Option 门面配置选项
type Option func(*Facade)

// WithLogger 设置日志器
func WithLogger(l log.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// WithProbeTimeout 设置单个后端状态采集的超时
func WithProbeTimeout(d time.Duration) Option {
	return func(f *Facade) { f.probeTimeout = d }
}

// New 创建管理门面
func New(registry *backend.Registry, opts ...Option) *Facade {
	f := &Facade{
		registry:     registry,
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.Default().WithField("component", "admin")
	}
	return f
}

// =============================================================================
// 状态采集
// =============================================================================

// ProviderStatuses 并发采集所有已注册后端的状态报告
//
// 返回顺序与注册顺序一致。不支持自省的后端报告 StateUnknown；
// 自省失败的后端报告 StateUnhealthy 并携带错误信息，不向上传播
func (f *Facade) ProviderStatuses(ctx context.Context) []ProviderReport {
	entries := f.registry.Entries()
	reports := make([]ProviderReport, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			reports[i] = f.probe(ctx, e)
			return nil
		})
	}
	// 采集函数不返回错误
	_ = g.Wait()

	return reports
}

// probe 采集单个后端的状态
func (f *Facade) probe(ctx context.Context, e *backend.Entry) ProviderReport {
	report := ProviderReport{
		ProviderStatus: backend.ProviderStatus{
			Name:      e.Name,
			State:     backend.StateUnknown,
			Message:   "available",
			LastCheck: time.Now(),
		},
		Capabilities: e.Capabilities,
		Metrics:      e.Metrics.Snapshot(),
	}

	in, ok := e.Backend.(backend.Introspector)
	if !ok {
		return report
	}

	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	status, err := in.Status(probeCtx)
	if err != nil {
		// 包装后端可能声明了自省接口但内层不支持，按不支持处理
		if errors.IsUnsupported(err) {
			return report
		}
		f.logger.WithError(err).WithField("backend", e.Name).Warn("状态采集失败")
		report.State = backend.StateUnhealthy
		report.Message = err.Error()
		return report
	}

	status.Name = e.Name
	if status.LastCheck.IsZero() {
		status.LastCheck = time.Now()
	}
	report.ProviderStatus = status
	return report
}

// =============================================================================
// 命名空间统计
// =============================================================================

// NamespaceInfos 汇总所有可自省后端的命名空间统计
//
// 同名命名空间跨后端累加；结果按命名空间名排序。
// 自省失败的后端记录日志后跳过
func (f *Facade) NamespaceInfos(ctx context.Context) []backend.NamespaceInfo {
	entries := f.registry.Entries()
	perBackend := make([][]backend.NamespaceInfo, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		in, ok := e.Backend.(backend.Introspector)
		if !ok {
			continue
		}
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
			defer cancel()

			infos, err := in.NamespaceInfo(probeCtx)
			if err != nil {
				if !errors.IsUnsupported(err) {
					f.logger.WithError(err).WithField("backend", e.Name).Warn("命名空间统计采集失败")
				}
				return nil
			}
			perBackend[i] = infos
			return nil
		})
	}
	_ = g.Wait()

	merged := make(map[string]*backend.NamespaceInfo)
	for _, infos := range perBackend {
		for _, info := range infos {
			if agg, ok := merged[info.Namespace]; ok {
				agg.KeyCount += info.KeyCount
				agg.TotalBytes += info.TotalBytes
			} else {
				copied := info
				merged[info.Namespace] = &copied
			}
		}
	}

	result := make([]backend.NamespaceInfo, 0, len(merged))
	for _, info := range merged {
		result = append(result, *info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Namespace < result[j].Namespace
	})
	return result
}
