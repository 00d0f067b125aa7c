package router

import (
	"context"
	"strings"
	"time"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// =============================================================================
// 命名空间批量操作
// =============================================================================

// Namespace 枚举命名空间下的全部键值
//
// 只针对命名空间级策略（Resolve(ns + ".*")）选出的单一后端操作，
// 不跨后端扇出。调用方契约：命名空间级策略与其下的逐键策略必须
// 指向同一后端，否则其他后端上的键对本操作不可见。
func (r *Router) Namespace(ctx context.Context, ns string) (map[string][]byte, error) {
	e, err := r.namespaceBackend(ns)
	if err != nil {
		return nil, err
	}

	prefix := ns + "."

	keys, err := e.Backend.Keys(ctx)
	e.Metrics.RecordKeys(err)
	if err != nil {
		return nil, errors.NewBackendError(e.Name, "Namespace", ns, err)
	}

	result := make(map[string][]byte)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		value, found, err := e.Backend.Get(ctx, key)
		if err != nil {
			e.Metrics.RecordGet(time.Since(start), err)
			return nil, errors.NewBackendError(e.Name, "Namespace", key, err)
		}
		e.Metrics.RecordGet(time.Since(start), nil)
		if found {
			result[key] = value
		}
	}
	return result, nil
}

// ClearNamespace 删除命名空间下的全部键
// 与 Namespace 相同的单后端契约；每个删除的键都会通知订阅者
func (r *Router) ClearNamespace(ctx context.Context, ns string) error {
	e, err := r.namespaceBackend(ns)
	if err != nil {
		return err
	}

	prefix := ns + "."

	keys, err := e.Backend.Keys(ctx)
	e.Metrics.RecordKeys(err)
	if err != nil {
		return errors.NewBackendError(e.Name, "ClearNamespace", ns, err)
	}

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := e.Backend.Delete(ctx, key)
		e.Metrics.RecordDelete(time.Since(start), err)
		if err != nil {
			return errors.NewBackendError(e.Name, "ClearNamespace", key, err)
		}
		r.subs.notify(key, nil)
	}
	return nil
}

// namespaceBackend 选择命名空间级策略对应的单一后端
func (r *Router) namespaceBackend(ns string) (*backend.Entry, error) {
	pol := r.table.Resolve(ns + ".*")
	cands := orderByPrecedence(pol, candidates(pol, r.registry))
	if len(cands) == 0 {
		return nil, errors.ErrNoBackend
	}
	return cands[0], nil
}
