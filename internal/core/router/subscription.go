package router

import (
	"sync"

	"github.com/google/uuid"

	"polystore/internal/core/log"
)

// =============================================================================
// 订阅注册表（进程内）
// =============================================================================

// Callback 键变更回调
// Set 成功后收到新值；Delete 成功后收到 nil（表示键已删除）
type Callback func(key string, value []byte)

// subscriber 单个订阅者
type subscriber struct {
	id uuid.UUID
	fn Callback
}

// subscriptions 按精确键组织的订阅注册表
// 通知在写操作所在 goroutine 上同步执行，按注册顺序逐个调用
type subscriptions struct {
	mu     sync.RWMutex
	byKey  map[string][]*subscriber
	logger log.Logger
}

func newSubscriptions(logger log.Logger) *subscriptions {
	return &subscriptions{
		byKey:  make(map[string][]*subscriber),
		logger: logger,
	}
}

// subscribe 注册回调，返回幂等的取消函数
func (s *subscriptions) subscribe(key string, fn Callback) func() {
	sub := &subscriber{id: uuid.New(), fn: fn}

	s.mu.Lock()
	s.byKey[key] = append(s.byKey[key], sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		subs := s.byKey[key]
		for i, candidate := range subs {
			if candidate.id == sub.id {
				s.byKey[key] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(s.byKey[key]) == 0 {
			delete(s.byKey, key)
		}
	}
}

// notify 通知键的全部订阅者
// 单个回调 panic 被隔离记录，不影响后续回调
func (s *subscriptions) notify(key string, value []byte) {
	s.mu.RLock()
	subs := s.byKey[key]
	// 复制切片，避免回调中订阅/退订造成并发修改
	snapshot := make([]*subscriber, len(subs))
	copy(snapshot, subs)
	s.mu.RUnlock()

	for _, sub := range snapshot {
		s.invoke(key, value, sub)
	}
}

func (s *subscriptions) invoke(key string, value []byte, sub *subscriber) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("key", key).Errorf("subscriber callback panicked: %v", r)
		}
	}()
	sub.fn(key, value)
}
