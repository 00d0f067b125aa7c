// Package config 提供统一配置：日志、后端实例与路由策略
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"polystore/internal/core/backend/badger"
	"polystore/internal/core/backend/postgres"
	"polystore/internal/core/backend/redis"
	"polystore/internal/core/log"
	"polystore/internal/core/policy"
)

// =============================================================================
// 统一配置
// =============================================================================

// Config 根配置
type Config struct {
	// Log 日志配置
	Log log.Config `yaml:"log"`

	// Backends 后端实例定义，顺序即注册顺序
	Backends []BackendConfig `yaml:"backends"`

	// Defaults 系统默认后端集（留空表示全部已注册后端）
	Defaults []string `yaml:"defaults,omitempty"`

	// Policies 路由策略规则
	Policies []policy.RuleConfig `yaml:"policies,omitempty"`
}

// BackendConfig 单个后端实例配置
type BackendConfig struct {
	// Name 注册名，路由策略通过该名字引用后端
	Name string `yaml:"name"`

	// Type 后端类型：memory | redis | embedded | badger | postgres
	Type string `yaml:"type"`

	// Cache 读穿缓存配置，nil 表示不启用
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// Redis Redis 配置（Type=redis 时使用）
	Redis *redis.Config `yaml:"redis,omitempty"`

	// Badger BadgerDB 配置（Type=badger 时使用）
	Badger *badger.Config `yaml:"badger,omitempty"`

	// Postgres PostgreSQL 配置（Type=postgres 时使用）
	Postgres *postgres.Config `yaml:"postgres,omitempty"`
}

// CacheConfig 读穿缓存配置
type CacheConfig struct {
	// Size LRU 容量
	Size int `yaml:"size"`

	// TTL 缓存条目存活时间，0 表示不过期
	TTL time.Duration `yaml:"ttl"`
}

// Default 默认配置：单个内存后端，全部键走默认策略
func Default() *Config {
	return &Config{
		Log: log.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Backends: []BackendConfig{
			{Name: "memory", Type: "memory"},
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}

	seen := make(map[string]bool)
	for i := range c.Backends {
		bc := &c.Backends[i]
		if bc.Name == "" {
			return fmt.Errorf("backend[%d]: name is required", i)
		}
		if seen[bc.Name] {
			return fmt.Errorf("backend %q: duplicate name", bc.Name)
		}
		seen[bc.Name] = true

		switch bc.Type {
		case "memory", "embedded":
		case "redis":
			if bc.Redis == nil || bc.Redis.Addr == "" {
				return fmt.Errorf("backend %q: redis.addr is required", bc.Name)
			}
		case "badger":
			if bc.Badger == nil || bc.Badger.Dir == "" {
				return fmt.Errorf("backend %q: badger.dir is required", bc.Name)
			}
		case "postgres":
			if bc.Postgres == nil || bc.Postgres.DSN == "" {
				return fmt.Errorf("backend %q: postgres.dsn is required", bc.Name)
			}
		default:
			return fmt.Errorf("backend %q: unsupported type %q", bc.Name, bc.Type)
		}

		if bc.Cache != nil && bc.Cache.Size <= 0 {
			return fmt.Errorf("backend %q: cache.size must be positive", bc.Name)
		}
	}

	for _, name := range c.Defaults {
		if !seen[name] {
			return fmt.Errorf("defaults: unknown backend %q", name)
		}
	}
	return nil
}

// Load 从 YAML 字节解析配置
func Load(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 YAML 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Load(data)
}
