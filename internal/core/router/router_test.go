package router

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polystore/internal/core/backend"
	"polystore/internal/core/log"
	"polystore/internal/core/policy"
	"polystore/internal/errors"
)

// stubBackend 可注入故障的测试后端
type stubBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	caps []backend.Capability

	failGet    error
	failSet    error
	failDelete error
	failKeys   error

	setCalls    int
	getCalls    int
	deleteCalls int
}

func newStub(caps ...backend.Capability) *stubBackend {
	return &stubBackend{data: make(map[string][]byte), caps: caps}
}

func (s *stubBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.failGet != nil {
		return nil, false, s.failGet
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.failSet != nil {
		return s.failSet
	}
	s.data[key] = value
	return nil
}

func (s *stubBackend) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if s.failDelete != nil {
		return s.failDelete
	}
	delete(s.data, key)
	return nil
}

func (s *stubBackend) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKeys != nil {
		return nil, s.failKeys
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *stubBackend) Close() error { return nil }

func (s *stubBackend) Capabilities() []backend.Capability { return s.caps }

func (s *stubBackend) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// newTestRouter 构建路由器及其注册表
func newTestRouter(t *testing.T, rules []policy.Policy, backends map[string]*stubBackend, order []string) *Router {
	t.Helper()

	table, err := policy.NewTable(rules)
	require.NoError(t, err)

	reg := backend.NewRegistry()
	for _, name := range order {
		require.NoError(t, reg.Register(name, backends[name]))
	}

	return New(table, reg, WithLogger(log.NewNopLogger()))
}

func TestRouter_SetGetRoundTrip(t *testing.T) {
	mem := newStub(backend.CapLocalOnly)
	r := newTestRouter(t, []policy.Policy{
		{Pattern: "ui.*", AllowedBackends: []string{"memory"}},
	}, map[string]*stubBackend{"memory": mem}, []string{"memory"})
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "ui.theme", []byte("dark")))

	value, found, err := r.Get(ctx, "ui.theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("dark"), value)
}

func TestRouter_ForbiddenNeverSelected(t *testing.T) {
	// 场景：ui.* 禁用 firebase；firebase 同时出现在注册表中
	local := newStub(backend.CapLocalOnly)
	mem := newStub(backend.CapLocalOnly)
	firebase := newStub(backend.CapDurableRemote)

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "user.auth.*", AllowedBackends: []string{"firebase"}},
		{Pattern: "ui.*", AllowedBackends: []string{"localStorage", "memory"}, ForbiddenBackends: []string{"firebase"}},
	}, map[string]*stubBackend{
		"localStorage": local, "memory": mem, "firebase": firebase,
	}, []string{"localStorage", "memory", "firebase"})
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "ui.theme", []byte("dark")))

	assert.Zero(t, firebase.setCalls)
	assert.True(t, local.has("ui.theme") || mem.has("ui.theme"))

	value, found, err := r.Get(ctx, "ui.theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("dark"), value)
}

func TestRouter_ForbiddenInAllowedList(t *testing.T) {
	// allowed 与 forbidden 同时包含的后端永不被选中
	bad := newStub()
	good := newStub()

	r := newTestRouter(t, []policy.Policy{
		{
			Pattern:           "x.*",
			AllowedBackends:   []string{"bad", "good"},
			ForbiddenBackends: []string{"bad"},
		},
	}, map[string]*stubBackend{"bad": bad, "good": good}, []string{"bad", "good"})

	require.NoError(t, r.Set(context.Background(), "x.y", []byte("v")))
	assert.Zero(t, bad.setCalls)
	assert.Equal(t, 1, good.setCalls)
}

func TestRouter_NoBackend(t *testing.T) {
	// 场景：策略只允许 firebase，但仅 memory 注册
	mem := newStub(backend.CapLocalOnly)
	r := newTestRouter(t, []policy.Policy{
		{Pattern: "governance.audit", AllowedBackends: []string{"firebase"}},
	}, map[string]*stubBackend{"memory": mem}, []string{"memory"})

	err := r.Set(context.Background(), "governance.audit", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrNoBackend)

	_, _, err = r.Get(context.Background(), "governance.audit")
	assert.ErrorIs(t, err, errors.ErrNoBackend)

	err = r.Delete(context.Background(), "governance.audit")
	assert.ErrorIs(t, err, errors.ErrNoBackend)
}

func TestRouter_FallbackCompleteness(t *testing.T) {
	// 前 N-1 个候选失败、第 N 个成功：调用方只看到成功
	first := newStub()
	first.failSet = stderrors.New("disk full")
	second := newStub()
	second.failSet = stderrors.New("connection refused")
	third := newStub()

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"first", "second", "third"}},
	}, map[string]*stubBackend{"first": first, "second": second, "third": third},
		[]string{"first", "second", "third"})

	require.NoError(t, r.Set(context.Background(), "a.b", []byte("v")))
	assert.Equal(t, 1, first.setCalls)
	assert.Equal(t, 1, second.setCalls)
	assert.True(t, third.has("a.b"))
}

func TestRouter_FallbackExhaustion(t *testing.T) {
	// 所有候选失败：返回聚合错误，按尝试顺序记录每个后端
	first := newStub()
	first.failSet = stderrors.New("err-first")
	second := newStub()
	second.failSet = stderrors.New("err-second")

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"first", "second"}},
	}, map[string]*stubBackend{"first": first, "second": second}, []string{"first", "second"})

	err := r.Set(context.Background(), "a.b", []byte("v"))
	require.Error(t, err)

	var failed *errors.BackendFailedError
	require.True(t, stderrors.As(err, &failed))
	require.Len(t, failed.Attempts, 2)
	assert.Equal(t, "first", failed.Attempts[0].Backend)
	assert.Equal(t, "second", failed.Attempts[1].Backend)
	assert.Contains(t, failed.Attempts[0].Cause.Error(), "err-first")
	assert.Contains(t, failed.Attempts[1].Cause.Error(), "err-second")
}

func TestRouter_NotFoundIsTerminal(t *testing.T) {
	// 主后端报告"未找到"（无错误）时不尝试其他后端
	primary := newStub()
	secondary := newStub()
	secondary.data["a.b"] = []byte("stale")

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"primary", "secondary"}},
	}, map[string]*stubBackend{"primary": primary, "secondary": secondary},
		[]string{"primary", "secondary"})

	value, found, err := r.Get(context.Background(), "a.b")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
	assert.Zero(t, secondary.getCalls)
}

func TestRouter_GetFallback(t *testing.T) {
	primary := newStub()
	primary.failGet = stderrors.New("io error")
	secondary := newStub()
	secondary.data["a.b"] = []byte("recovered")

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"primary", "secondary"}},
	}, map[string]*stubBackend{"primary": primary, "secondary": secondary},
		[]string{"primary", "secondary"})

	value, found, err := r.Get(context.Background(), "a.b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("recovered"), value)
}

func TestRouter_DeleteFallback(t *testing.T) {
	primary := newStub()
	primary.failDelete = stderrors.New("io error")
	secondary := newStub()
	secondary.data["a.b"] = []byte("v")

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"primary", "secondary"}},
	}, map[string]*stubBackend{"primary": primary, "secondary": secondary},
		[]string{"primary", "secondary"})

	require.NoError(t, r.Delete(context.Background(), "a.b"))
	assert.False(t, secondary.has("a.b"))
}

func TestRouter_ContextCancellationStopsFallback(t *testing.T) {
	first := newStub()
	first.failSet = stderrors.New("slow failure")
	second := newStub()

	r := newTestRouter(t, []policy.Policy{
		{Pattern: "a.*", AllowedBackends: []string{"first", "second"}},
	}, map[string]*stubBackend{"first": first, "second": second}, []string{"first", "second"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Set(ctx, "a.b", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
	// 已取消的调用不触达任何后端
	assert.Zero(t, first.setCalls)
	assert.Zero(t, second.setCalls)
}

func TestRouter_DefaultPolicyUsesRegistryDefaults(t *testing.T) {
	mem := newStub(backend.CapLocalOnly)
	r := newTestRouter(t, []policy.Policy{},
		map[string]*stubBackend{"memory": mem}, []string{"memory"})
	ctx := context.Background()

	// 无策略命中的键落入默认后端集
	require.NoError(t, r.Set(ctx, "anything.goes", []byte("v")))
	assert.True(t, mem.has("anything.goes"))
}

func TestRouter_LateRegisteredBackendSelectable(t *testing.T) {
	mem := newStub(backend.CapLocalOnly)
	r := newTestRouter(t, []policy.Policy{
		{Pattern: "archive.*", AllowedBackends: []string{"cold"}},
	}, map[string]*stubBackend{"memory": mem}, []string{"memory"})
	ctx := context.Background()

	err := r.Set(ctx, "archive.log", []byte("x"))
	assert.ErrorIs(t, err, errors.ErrNoBackend)

	cold := newStub()
	require.NoError(t, r.RegisterBackend("cold", cold))

	require.NoError(t, r.Set(ctx, "archive.log", []byte("x")))
	assert.True(t, cold.has("archive.log"))
}

func TestRouter_ConcurrentOperations(t *testing.T) {
	mem := newStub(backend.CapLocalOnly)
	r := newTestRouter(t, []policy.Policy{},
		map[string]*stubBackend{"memory": mem}, []string{"memory"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := []string{"a.x", "b.y", "c.z", "d.w"}[n%4]
			for j := 0; j < 100; j++ {
				_ = r.Set(ctx, key, []byte("v"))
				_, _, _ = r.Get(ctx, key)
				_ = r.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
