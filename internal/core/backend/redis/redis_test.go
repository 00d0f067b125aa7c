package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystore/internal/core/backend"
)

// newTestBackend 启动 miniredis 并创建后端
func newTestBackend(t *testing.T, keyPrefix string) (*Backend, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	b := New(client, keyPrefix)
	t.Cleanup(func() { b.Close() })
	return b, server
}

func TestRedisBackend_SetGet(t *testing.T) {
	b, _ := newTestBackend(t, "")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "ui.theme", []byte("dark"), 0))

	value, found, err := b.Get(ctx, "ui.theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("dark"), value)
}

func TestRedisBackend_GetMissing(t *testing.T) {
	b, _ := newTestBackend(t, "")

	_, found, err := b.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_TTL(t *testing.T) {
	b, server := newTestBackend(t, "")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "session.token", []byte("abc"), time.Minute))

	// miniredis 支持时间快进
	server.FastForward(2 * time.Minute)

	_, found, err := b.Get(ctx, "session.token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_Delete(t *testing.T) {
	b, _ := newTestBackend(t, "")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a.b", []byte("v"), 0))
	require.NoError(t, b.Delete(ctx, "a.b"))

	_, found, err := b.Get(ctx, "a.b")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, b.Delete(ctx, "a.b"))
}

func TestRedisBackend_KeyPrefix(t *testing.T) {
	b, server := newTestBackend(t, "app:")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "user.name", []byte("alice"), 0))

	// 物理键带前缀
	assert.True(t, server.Exists("app:user.name"))

	// Keys 剥离前缀
	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user.name"}, keys)
}

func TestRedisBackend_Status(t *testing.T) {
	b, server := newTestBackend(t, "")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k.1", []byte("v"), 0))
	require.NoError(t, b.Set(ctx, "k.2", []byte("v"), 0))

	status, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.StateHealthy, status.State)
	assert.Equal(t, int64(2), status.KeyCount)

	// 服务宕机后状态为 unhealthy，但不返回错误
	server.Close()
	status, err = b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.StateUnhealthy, status.State)
	assert.NotEmpty(t, status.Message)
}

func TestRedisBackend_NamespaceInfo(t *testing.T) {
	b, _ := newTestBackend(t, "")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "user.name", []byte("alice"), 0))
	require.NoError(t, b.Set(ctx, "user.email", []byte("a@example.com"), 0))
	require.NoError(t, b.Set(ctx, "ui.theme", []byte("dark"), 0))

	infos, err := b.NamespaceInfo(ctx)
	require.NoError(t, err)

	counts := make(map[string]int64)
	for _, info := range infos {
		counts[info.Namespace] = info.KeyCount
	}
	assert.Equal(t, int64(2), counts["user"])
	assert.Equal(t, int64(1), counts["ui"])
}

func TestRedisBackend_Capabilities(t *testing.T) {
	b, _ := newTestBackend(t, "")
	assert.Equal(t, []backend.Capability{backend.CapDurableRemote}, b.Capabilities())
}

func TestNewFromConfig(t *testing.T) {
	server := miniredis.RunT(t)

	b, err := NewFromConfig(&Config{Addr: server.Addr()})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set(context.Background(), "x.y", []byte("z"), 0))

	// 连接失败时报错
	_, err = NewFromConfig(&Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)

	_, err = NewFromConfig(nil)
	assert.Error(t, err)
}
