// Package router 实现策略驱动的存储路由核心
//
// 每次操作的控制流：
//
//	策略解析 → 候选后端计算 → 优先级排序 → 后端调用
//	→ 失败时按候选顺序逐个降级 → 成功的变更同步通知订阅者
package router

import (
	"context"
	"time"

	"polystore/internal/core/backend"
	"polystore/internal/core/log"
	"polystore/internal/core/policy"
	"polystore/internal/errors"
)

// Router 策略驱动的存储路由器
// 显式构造、按引用注入，无包级单例；可安全并发调用
type Router struct {
	table    *policy.Table
	registry *backend.Registry
	subs     *subscriptions
	logger   log.Logger
}

// Option Router 构造选项
type Option func(*Router)

// WithLogger 注入日志实例
func WithLogger(l log.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New 创建路由器
func New(table *policy.Table, registry *backend.Registry, opts ...Option) *Router {
	r := &Router{
		table:    table,
		registry: registry,
		logger:   log.Default().WithField("component", "router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.subs = newSubscriptions(r.logger)
	return r
}

// RegisterBackend 注册后端（运行期追加可见）
func (r *Router) RegisterBackend(name string, b backend.Backend) error {
	return r.registry.Register(name, b)
}

// Registry 暴露注册表（供管理门面读取）
func (r *Router) Registry() *backend.Registry {
	return r.registry
}

// Subscribe 订阅键的变更通知，返回幂等的取消函数
// 回调在成功写入的 goroutine 上同步执行；慢回调会阻塞写调用方
func (r *Router) Subscribe(key string, fn Callback) func() {
	return r.subs.subscribe(key, fn)
}

// Get 获取键的值
// 键不存在返回 (nil, false, nil)；"未找到"是终态结果，不触发降级
func (r *Router) Get(ctx context.Context, key string) ([]byte, bool, error) {
	pol := r.table.Resolve(key)
	cands := orderByPrecedence(pol, candidates(pol, r.registry))
	if len(cands) == 0 {
		return nil, false, errors.ErrNoBackend
	}

	var attempts []*errors.BackendError
	for i, e := range cands {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if i > 0 {
			e.Metrics.RecordFallback()
		}

		start := time.Now()
		value, found, err := e.Backend.Get(ctx, key)
		if err == nil {
			if !found {
				e.Metrics.RecordGet(time.Since(start), errors.ErrNotFound)
				return nil, false, nil
			}
			e.Metrics.RecordGet(time.Since(start), nil)
			return value, true, nil
		}
		e.Metrics.RecordGet(time.Since(start), err)

		attempts = append(attempts, errors.NewBackendError(e.Name, "Get", key, err))
		r.logger.WithField("backend", e.Name).WithField("key", key).WithError(err).
			Warn("backend get failed, trying next candidate")
	}

	return nil, false, errors.NewBackendFailedError("Get", key, attempts)
}

// Set 写入键值
// TTL 取自解析出的策略；成功后同步通知订阅者，订阅者先于调用方观察到新值
func (r *Router) Set(ctx context.Context, key string, value []byte) error {
	pol := r.table.Resolve(key)
	cands := orderByPrecedence(pol, candidates(pol, r.registry))
	if len(cands) == 0 {
		return errors.ErrNoBackend
	}

	var attempts []*errors.BackendError
	for i, e := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			e.Metrics.RecordFallback()
		}

		start := time.Now()
		err := e.Backend.Set(ctx, key, value, pol.TTL)
		e.Metrics.RecordSet(time.Since(start), err)
		if err == nil {
			r.subs.notify(key, value)
			return nil
		}

		attempts = append(attempts, errors.NewBackendError(e.Name, "Set", key, err))
		r.logger.WithField("backend", e.Name).WithField("key", key).WithError(err).
			Warn("backend set failed, trying next candidate")
	}

	return errors.NewBackendFailedError("Set", key, attempts)
}

// Delete 删除键
// 成功后以 nil 值通知订阅者
func (r *Router) Delete(ctx context.Context, key string) error {
	pol := r.table.Resolve(key)
	cands := orderByPrecedence(pol, candidates(pol, r.registry))
	if len(cands) == 0 {
		return errors.ErrNoBackend
	}

	var attempts []*errors.BackendError
	for i, e := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			e.Metrics.RecordFallback()
		}

		start := time.Now()
		err := e.Backend.Delete(ctx, key)
		e.Metrics.RecordDelete(time.Since(start), err)
		if err == nil {
			r.subs.notify(key, nil)
			return nil
		}

		attempts = append(attempts, errors.NewBackendError(e.Name, "Delete", key, err))
		r.logger.WithField("backend", e.Name).WithField("key", key).WithError(err).
			Warn("backend delete failed, trying next candidate")
	}

	return errors.NewBackendFailedError("Delete", key, attempts)
}

// Close 关闭路由器持有的全部后端
func (r *Router) Close() error {
	return r.registry.Close()
}
