package router

import (
	"polystore/internal/core/backend"
	"polystore/internal/core/policy"
)

// =============================================================================
// 后端选择
// =============================================================================

// candidates 计算策略的候选后端（有序）
// allowed 为空时使用系统默认后端集；forbidden 始终剔除；
// 只保留当前已注册的后端
func candidates(p policy.Policy, reg *backend.Registry) []*backend.Entry {
	names := p.AllowedBackends
	if len(names) == 0 {
		names = reg.Defaults()
	}

	result := make([]*backend.Entry, 0, len(names))
	for _, name := range names {
		if p.IsForbidden(name) {
			continue
		}
		if e, ok := reg.Lookup(name); ok {
			result = append(result, e)
		}
	}
	return result
}

// orderByPrecedence 按选择优先级重排候选
//
// 首条命中规则获胜：
//
//	a. 策略要求静态加密时，优先具备 at-rest-encryption 能力的后端
//	b. 同步策略为 never 时，优先 local-only 后端
//	c. 同步策略为 immediate 时，优先 durable-remote 后端
//	d. 否则保持候选声明顺序
//
// 命中的后端移到首位，其余保持声明顺序作为降级序列
func orderByPrecedence(p policy.Policy, cands []*backend.Entry) []*backend.Entry {
	if len(cands) < 2 {
		return cands
	}

	// 规则按序尝试：条件成立且候选中存在具备能力的后端才算命中
	preferred := -1
	if p.Encryption.RequiresAtRest() {
		preferred = firstWithCapability(cands, backend.CapAtRestEncryption)
	}
	if preferred < 0 && p.SyncStrategy == policy.SyncNever {
		preferred = firstWithCapability(cands, backend.CapLocalOnly)
	}
	if preferred < 0 && p.SyncStrategy == policy.SyncImmediate {
		preferred = firstWithCapability(cands, backend.CapDurableRemote)
	}

	if preferred <= 0 {
		// 未命中或命中者本就是首位
		return cands
	}

	ordered := make([]*backend.Entry, 0, len(cands))
	ordered = append(ordered, cands[preferred])
	for i, e := range cands {
		if i != preferred {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

func firstWithCapability(cands []*backend.Entry, c backend.Capability) int {
	for i, e := range cands {
		if e.HasCapability(c) {
			return i
		}
	}
	return -1
}
