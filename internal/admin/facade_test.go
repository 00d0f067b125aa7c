package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystore/internal/core/backend"
	"polystore/internal/errors"
)

// plainBackend 不支持自省的最小后端
type plainBackend struct{}

func (p *plainBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}
func (p *plainBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (p *plainBackend) Delete(ctx context.Context, key string) error { return nil }
func (p *plainBackend) Keys(ctx context.Context) ([]string, error)   { return nil, nil }
func (p *plainBackend) Close() error                                 { return nil }

// introspectable 支持自省的后端
type introspectable struct {
	plainBackend
	status     backend.ProviderStatus
	statusErr  error
	namespaces []backend.NamespaceInfo
	nsErr      error
}

func (b *introspectable) Status(ctx context.Context) (backend.ProviderStatus, error) {
	if b.statusErr != nil {
		return backend.ProviderStatus{}, b.statusErr
	}
	return b.status, nil
}

func (b *introspectable) NamespaceInfo(ctx context.Context) ([]backend.NamespaceInfo, error) {
	if b.nsErr != nil {
		return nil, b.nsErr
	}
	return b.namespaces, nil
}

func TestProviderStatuses(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.RegisterWithCapabilities("plain", &plainBackend{}, backend.CapLocalOnly))
	require.NoError(t, reg.Register("healthy", &introspectable{
		status: backend.ProviderStatus{State: backend.StateHealthy, KeyCount: 42},
	}))
	require.NoError(t, reg.Register("broken", &introspectable{
		statusErr: assert.AnError,
	}))

	f := New(reg)
	reports := f.ProviderStatuses(context.Background())
	require.Len(t, reports, 3)

	// 报告顺序与注册顺序一致
	assert.Equal(t, "plain", reports[0].Name)
	assert.Equal(t, "healthy", reports[1].Name)
	assert.Equal(t, "broken", reports[2].Name)

	// 不支持自省 → unknown，默认可用
	assert.Equal(t, backend.StateUnknown, reports[0].State)
	assert.Equal(t, "available", reports[0].Message)
	assert.Equal(t, []backend.Capability{backend.CapLocalOnly}, reports[0].Capabilities)

	assert.Equal(t, backend.StateHealthy, reports[1].State)
	assert.Equal(t, int64(42), reports[1].KeyCount)
	assert.False(t, reports[1].LastCheck.IsZero())

	// 自省失败 → unhealthy，不影响整体采集
	assert.Equal(t, backend.StateUnhealthy, reports[2].State)
	assert.Contains(t, reports[2].Message, assert.AnError.Error())
}

// 声明了自省接口但内层不支持的后端（如包装了裸后端的缓存层）
// 按不支持自省处理，而不是报告为不健康
func TestProviderStatuses_UnsupportedIntrospection(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("wrapped", &introspectable{
		statusErr: errors.ErrUnsupported,
		nsErr:     errors.ErrUnsupported,
	}))

	f := New(reg)
	reports := f.ProviderStatuses(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, backend.StateUnknown, reports[0].State)
	assert.Equal(t, "available", reports[0].Message)

	assert.Empty(t, f.NamespaceInfos(context.Background()))
}

func TestProviderStatuses_IncludesMetrics(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("mem", &plainBackend{}))

	e, ok := reg.Lookup("mem")
	require.True(t, ok)
	e.Metrics.RecordGet(time.Millisecond, nil)
	e.Metrics.RecordSet(time.Millisecond, nil)
	e.Metrics.RecordSet(time.Millisecond, nil)

	f := New(reg)
	reports := f.ProviderStatuses(context.Background())
	require.Len(t, reports, 1)
	assert.Equal(t, int64(1), reports[0].Metrics.Gets)
	assert.Equal(t, int64(2), reports[0].Metrics.Sets)
}

func TestNamespaceInfos_MergesAcrossBackends(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("a", &introspectable{
		namespaces: []backend.NamespaceInfo{
			{Namespace: "user", KeyCount: 3, TotalBytes: 30},
			{Namespace: "ui", KeyCount: 1, TotalBytes: 5},
		},
	}))
	require.NoError(t, reg.Register("b", &introspectable{
		namespaces: []backend.NamespaceInfo{
			{Namespace: "user", KeyCount: 2, TotalBytes: 20},
		},
	}))
	require.NoError(t, reg.Register("plain", &plainBackend{}))
	require.NoError(t, reg.Register("broken", &introspectable{nsErr: assert.AnError}))

	f := New(reg)
	infos := f.NamespaceInfos(context.Background())

	// 按命名空间名排序，同名跨后端累加
	require.Len(t, infos, 2)
	assert.Equal(t, backend.NamespaceInfo{Namespace: "ui", KeyCount: 1, TotalBytes: 5}, infos[0])
	assert.Equal(t, backend.NamespaceInfo{Namespace: "user", KeyCount: 5, TotalBytes: 50}, infos[1])
}

func TestNamespaceInfos_Empty(t *testing.T) {
	reg := backend.NewRegistry()
	require.NoError(t, reg.Register("plain", &plainBackend{}))

	f := New(reg)
	assert.Empty(t, f.NamespaceInfos(context.Background()))
}
