package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystore/internal/core/backend"
)

// newTestBackend 连接 POLYSTORE_TEST_PG_DSN 指定的数据库，未配置时跳过
func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	dsn := os.Getenv("POLYSTORE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("POLYSTORE_TEST_PG_DSN not set, skipping postgres tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := New(ctx, &Config{DSN: dsn, Table: "kv_test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		b.pool.Exec(context.Background(), `DROP TABLE IF EXISTS kv_test`)
		b.Close()
	})
	return b
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "user.profile", []byte(`{"name":"alice"}`), 0))

	value, found, err := b.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"name":"alice"}`), value)

	require.NoError(t, b.Delete(ctx, "user.profile"))
	_, found, err = b.Get(ctx, "user.profile")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresBackend_TTL(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "session.token", []byte("abc"), 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, found, err := b.Get(ctx, "session.token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresBackend_Introspection(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "user.a", []byte("1"), 0))
	require.NoError(t, b.Set(ctx, "user.b", []byte("2"), 0))
	require.NoError(t, b.Set(ctx, "ui.theme", []byte("dark"), 0))

	status, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.StateHealthy, status.State)
	assert.Equal(t, int64(3), status.KeyCount)

	infos, err := b.NamespaceInfo(ctx)
	require.NoError(t, err)
	counts := make(map[string]int64)
	for _, info := range infos {
		counts[info.Namespace] = info.KeyCount
	}
	assert.Equal(t, int64(2), counts["user"])
	assert.Equal(t, int64(1), counts["ui"])
}

func TestPostgresBackend_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, nil)
	assert.Error(t, err)
	_, err = New(ctx, &Config{})
	assert.Error(t, err)
}
