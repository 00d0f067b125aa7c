// Package embedded 提供内嵌 Redis (miniredis) 后端实现
// 用于单进程部署和测试，无需外部 Redis 依赖
package embedded

import (
	"fmt"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"polystore/internal/core/backend"
	redisbackend "polystore/internal/core/backend/redis"
)

// Backend 内嵌 Redis 后端
// 组合 miniredis 服务与标准 Redis 后端实现
type Backend struct {
	*redisbackend.Backend

	server *miniredis.Miniredis
	client *goredis.Client
}

// New 启动内嵌 Redis 并创建后端
func New() (*Backend, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("start miniredis failed: %w", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: server.Addr(),
	})

	return &Backend{
		Backend: redisbackend.New(client, ""),
		server:  server,
		client:  client,
	}, nil
}

// Addr 获取服务地址
func (b *Backend) Addr() string {
	return b.server.Addr()
}

// Capabilities 内嵌实例是纯本地后端，覆盖 Redis 后端的声明
func (b *Backend) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapLocalOnly}
}

// Close 关闭客户端与内嵌服务
func (b *Backend) Close() error {
	if err := b.client.Close(); err != nil {
		return err
	}
	b.server.Close()
	return nil
}
