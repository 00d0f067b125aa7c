package config

import (
	"context"
	"fmt"

	"polystore/internal/core/backend"
	"polystore/internal/core/backend/badger"
	"polystore/internal/core/backend/cached"
	"polystore/internal/core/backend/embedded"
	"polystore/internal/core/backend/memory"
	"polystore/internal/core/backend/postgres"
	"polystore/internal/core/backend/redis"
	"polystore/internal/core/log"
	"polystore/internal/core/policy"
	"polystore/internal/core/router"
	"polystore/internal/errors"
)

// =============================================================================
// 组装工厂
// =============================================================================

// Build 按配置组装完整的路由器：创建后端、注册、构建策略表
//
// 任一后端创建失败时关闭已创建的后端并返回错误
func Build(ctx context.Context, cfg *Config) (*router.Router, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return nil, errors.WrapError(err, "init logger")
	}

	registry := backend.NewRegistry()
	for i := range cfg.Backends {
		bc := &cfg.Backends[i]
		b, err := buildBackend(ctx, bc)
		if err != nil {
			registry.Close()
			return nil, errors.WrapErrorf(err, "backend %q", bc.Name)
		}
		if err := registry.Register(bc.Name, b); err != nil {
			b.Close()
			registry.Close()
			return nil, err
		}
	}

	if len(cfg.Defaults) > 0 {
		if err := registry.SetDefaults(cfg.Defaults...); err != nil {
			registry.Close()
			return nil, err
		}
	}

	table, err := policy.FromConfigs(cfg.Policies)
	if err != nil {
		registry.Close()
		return nil, err
	}

	return router.New(table, registry, router.WithLogger(logger)), nil
}

// buildBackend 按类型创建单个后端实例
func buildBackend(ctx context.Context, bc *BackendConfig) (backend.Backend, error) {
	var (
		b   backend.Backend
		err error
	)

	switch bc.Type {
	case "memory":
		b = memory.New()

	case "embedded":
		b, err = embedded.New()

	case "redis":
		b, err = redis.NewFromConfig(bc.Redis)

	case "badger":
		b, err = badger.New(bc.Badger)

	case "postgres":
		b, err = postgres.New(ctx, bc.Postgres)

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", bc.Type)
	}
	if err != nil {
		return nil, err
	}

	if bc.Cache != nil {
		wrapped, err := cached.New(b, bc.Cache.Size, bc.Cache.TTL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b = wrapped
	}
	return b, nil
}
