package policy

import (
	"strings"

	"polystore/internal/errors"
)

// =============================================================================
// 策略表与解析
// =============================================================================

// prefixRule 前缀通配规则
type prefixRule struct {
	prefix string // 模式去掉尾部 "*" 后的字面前缀（含结尾 '.'）
	policy Policy
}

// Table 策略表
// 启动时构建一次，之后只读；Resolve 为纯函数，可安全并发调用
type Table struct {
	exact    map[string]Policy
	prefixes []prefixRule
}

// NewTable 构建策略表
// 规则在构建期完成校验与归一化，非法规则在此报错而非首次使用时
func NewTable(rules []Policy) (*Table, error) {
	t := &Table{
		exact: make(map[string]Policy, len(rules)),
	}

	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		// 先归一化再校验：零值枚举由 normalize 填充默认值
		normalized := rule.normalize()
		if err := normalized.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[rule.Pattern]; dup {
			return nil, errors.NewPolicyError(rule.Pattern, "duplicate pattern")
		}
		seen[rule.Pattern] = struct{}{}

		if prefix, ok := wildcardPrefix(rule.Pattern); ok {
			t.prefixes = append(t.prefixes, prefixRule{prefix: prefix, policy: normalized})
		} else {
			t.exact[rule.Pattern] = normalized
		}
	}
	return t, nil
}

// wildcardPrefix 提取前缀通配模式的字面前缀
// "foo.*" → ("foo.", true)；非通配模式返回 false
func wildcardPrefix(pattern string) (string, bool) {
	if strings.HasSuffix(pattern, ".*") {
		return pattern[:len(pattern)-1], true
	}
	return "", false
}

// Resolve 解析键的存储策略，永不失败
//
// 优先级：
//  1. 精确匹配
//  2. 前缀通配匹配，最长前缀获胜（确定性规则，不依赖规则声明顺序；
//     前缀等长时保留先声明者）
//  3. 默认策略
func (t *Table) Resolve(key string) Policy {
	if p, ok := t.exact[key]; ok {
		return p
	}

	var best *prefixRule
	for i := range t.prefixes {
		rule := &t.prefixes[i]
		if !strings.HasPrefix(key, rule.prefix) {
			continue
		}
		if best == nil || len(rule.prefix) > len(best.prefix) {
			best = rule
		}
	}
	if best != nil {
		return best.policy
	}

	return Default()
}

// Len 规则总数
func (t *Table) Len() int {
	return len(t.exact) + len(t.prefixes)
}
