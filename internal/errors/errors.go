package errors

import (
	"errors"
	"fmt"
	"strings"
)

// 路由层错误定义
var (
	// ErrNotFound 键不存在（正常结果，不触发降级）
	ErrNotFound = errors.New("key not found")

	// ErrNoBackend 策略解析成功但没有可用的候选后端
	ErrNoBackend = errors.New("no backend available for policy")

	// ErrClosed 路由器或后端已关闭
	ErrClosed = errors.New("storage closed")

	// ErrInvalidPolicy 策略配置非法（加载时校验失败）
	ErrInvalidPolicy = errors.New("invalid storage policy")

	// ErrUnsupported 后端不支持该操作
	ErrUnsupported = errors.New("operation not supported")
)

// BackendError 单个后端操作错误
type BackendError struct {
	Backend string
	Op      string
	Key     string
	Cause   error
}

func (e *BackendError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("backend %s: %s %q: %v", e.Backend, e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("backend %s: %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError 创建后端错误
func NewBackendError(backend, op, key string, cause error) *BackendError {
	return &BackendError{
		Backend: backend,
		Op:      op,
		Key:     key,
		Cause:   cause,
	}
}

// BackendFailedError 所有候选后端均失败
// Attempts 按尝试顺序记录每个后端的失败
type BackendFailedError struct {
	Op       string
	Key      string
	Attempts []*BackendError
}

func (e *BackendFailedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Backend)
	}
	return fmt.Sprintf("%s %q failed on all backends [%s]: %v",
		e.Op, e.Key, strings.Join(names, ", "), e.lastCause())
}

func (e *BackendFailedError) lastCause() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Cause
}

// Unwrap 返回最后一次尝试的错误，便于 errors.Is/As 穿透
func (e *BackendFailedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}

// NewBackendFailedError 创建聚合失败错误
func NewBackendFailedError(op, key string, attempts []*BackendError) *BackendFailedError {
	return &BackendFailedError{Op: op, Key: key, Attempts: attempts}
}

// PolicyError 策略加载/校验错误
type PolicyError struct {
	Pattern string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %q: %s", e.Pattern, e.Message)
}

func (e *PolicyError) Unwrap() error {
	return ErrInvalidPolicy
}

// NewPolicyError 创建策略错误
func NewPolicyError(pattern, format string, args ...interface{}) *PolicyError {
	return &PolicyError{Pattern: pattern, Message: fmt.Sprintf(format, args...)}
}

// WrapError 包装错误，添加上下文信息
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// WrapErrorf 格式化包装错误
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsNotFound 判断是否为键不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNoBackend 判断是否为无可用后端
func IsNoBackend(err error) bool {
	return errors.Is(err, ErrNoBackend)
}

// IsClosed 判断是否为已关闭
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsUnsupported 判断是否为后端不支持的操作
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
