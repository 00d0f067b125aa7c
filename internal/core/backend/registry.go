package backend

import (
	"fmt"
	"sync"

	"polystore/internal/core/log"
	"polystore/internal/core/metrics"
	"polystore/internal/errors"
)

// =============================================================================
// 后端注册表
// =============================================================================

// Entry 注册表条目
type Entry struct {
	Name         string
	Backend      Backend
	Capabilities []Capability
	Metrics      *metrics.BackendMetrics
}

// HasCapability 检查条目是否具备指定能力
func (e *Entry) HasCapability(c Capability) bool {
	for _, cap := range e.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Registry 后端注册表
// 读多写少：查找走读锁，注册走写锁；允许运行期追加注册，
// 新注册的后端在下一次查找时即可被选中
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	order    []string // 注册顺序
	defaults []string // 系统默认后端集（未配置时为全部已注册后端）
	closed   bool

	logger log.Logger
}

// NewRegistry 创建后端注册表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  log.Default().WithField("component", "registry"),
	}
}

// Register 注册后端
// 能力从后端的 CapabilityAdvertiser 实现读取（如果有）
func (r *Registry) Register(name string, b Backend) error {
	var caps []Capability
	if adv, ok := b.(CapabilityAdvertiser); ok {
		caps = adv.Capabilities()
	}
	return r.RegisterWithCapabilities(name, b, caps...)
}

// RegisterWithCapabilities 注册后端并显式指定能力标签
// 显式标签覆盖后端自身声明
func (r *Registry) RegisterWithCapabilities(name string, b Backend, caps ...Capability) error {
	if name == "" {
		return fmt.Errorf("backend name cannot be empty")
	}
	if b == nil {
		return fmt.Errorf("backend %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrClosed
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("backend %q already registered", name)
	}

	r.entries[name] = &Entry{
		Name:         name,
		Backend:      b,
		Capabilities: caps,
		Metrics:      metrics.NewBackendMetrics(),
	}
	r.order = append(r.order, name)

	r.logger.WithField("backend", name).Infof("registered backend, capabilities=%v", caps)
	return nil
}

// SetDefaults 设置系统默认后端集（策略未声明 allowed 时使用）
func (r *Registry) SetDefaults(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if _, exists := r.entries[name]; !exists {
			return fmt.Errorf("default backend %q not registered", name)
		}
	}
	r.defaults = append([]string{}, names...)
	return nil
}

// Defaults 获取系统默认后端集
// 未显式配置时返回全部已注册后端（按注册顺序）
func (r *Registry) Defaults() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.defaults) > 0 {
		return append([]string{}, r.defaults...)
	}
	return append([]string{}, r.order...)
}

// Lookup 按名称查找后端条目
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// Names 获取全部已注册后端名（按注册顺序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string{}, r.order...)
}

// Entries 获取全部条目（按注册顺序）
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.entries[name])
	}
	return result
}

// Close 关闭全部后端，聚合错误
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, name := range r.order {
		if err := r.entries[name].Backend.Close(); err != nil {
			r.logger.WithField("backend", name).WithError(err).Error("close failed")
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry close errors: %v", errs)
	}
	return nil
}
