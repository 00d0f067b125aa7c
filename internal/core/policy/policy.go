// Package policy 提供键模式到存储策略的映射与解析
package policy

import (
	"time"

	"polystore/internal/errors"
)

// =============================================================================
// 策略枚举
// =============================================================================

// Encryption 加密要求
type Encryption string

const (
	EncryptionNone      Encryption = "none"
	EncryptionAtRest    Encryption = "at-rest"
	EncryptionInTransit Encryption = "in-transit"
	EncryptionBoth      Encryption = "both"
)

// RequiresAtRest 是否要求静态加密
func (e Encryption) RequiresAtRest() bool {
	return e == EncryptionAtRest || e == EncryptionBoth
}

func (e Encryption) valid() bool {
	switch e {
	case EncryptionNone, EncryptionAtRest, EncryptionInTransit, EncryptionBoth:
		return true
	}
	return false
}

// SyncStrategy 同步策略，影响后端选择倾向（远程 vs 本地）
type SyncStrategy string

const (
	SyncImmediate SyncStrategy = "immediate"
	SyncBatched   SyncStrategy = "batched"
	SyncNever     SyncStrategy = "never"
)

func (s SyncStrategy) valid() bool {
	switch s {
	case SyncImmediate, SyncBatched, SyncNever:
		return true
	}
	return false
}

// ConflictResolution 冲突解决策略
// 路由器不强制执行，作为附加元数据供后端/调用方使用
type ConflictResolution string

const (
	ConflictClientWins ConflictResolution = "client-wins"
	ConflictServerWins ConflictResolution = "server-wins"
	ConflictMerge      ConflictResolution = "merge"
)

func (c ConflictResolution) valid() bool {
	switch c {
	case ConflictClientWins, ConflictServerWins, ConflictMerge:
		return true
	}
	return false
}

// =============================================================================
// 存储策略
// =============================================================================

// Policy 键模式的存储处理规则（不可变值）
type Policy struct {
	// Pattern 键模式：精确键或前缀通配（"foo.*"）
	Pattern string

	// AllowedBackends 允许的后端（有序）；为空表示使用系统默认后端集
	AllowedBackends []string

	// ForbiddenBackends 禁用的后端；始终从允许集中剔除
	ForbiddenBackends []string

	// TTL 可选过期时间，0 表示不过期
	TTL time.Duration

	// Encryption 加密要求
	Encryption Encryption

	// SyncStrategy 同步策略
	SyncStrategy SyncStrategy

	// ConflictResolution 冲突解决策略（咨询性）
	ConflictResolution ConflictResolution

	// RetentionPeriod 合规保留期（可选）
	RetentionPeriod time.Duration
}

// Default 默认策略：无模式命中时返回
// 允许集为空（解析为系统默认后端集），立即同步，客户端优先
func Default() Policy {
	return Policy{
		Encryption:         EncryptionNone,
		SyncStrategy:       SyncImmediate,
		ConflictResolution: ConflictClientWins,
	}
}

// normalize 填充零值枚举并执行 forbidden 剔除
func (p Policy) normalize() Policy {
	if p.Encryption == "" {
		p.Encryption = EncryptionNone
	}
	if p.SyncStrategy == "" {
		p.SyncStrategy = SyncImmediate
	}
	if p.ConflictResolution == "" {
		p.ConflictResolution = ConflictClientWins
	}

	// 不变式：forbidden 始终获胜，allowed ∩ forbidden = ∅
	if len(p.ForbiddenBackends) > 0 && len(p.AllowedBackends) > 0 {
		forbidden := make(map[string]struct{}, len(p.ForbiddenBackends))
		for _, name := range p.ForbiddenBackends {
			forbidden[name] = struct{}{}
		}
		allowed := make([]string, 0, len(p.AllowedBackends))
		for _, name := range p.AllowedBackends {
			if _, ok := forbidden[name]; !ok {
				allowed = append(allowed, name)
			}
		}
		p.AllowedBackends = allowed
	}
	return p
}

// validate 校验策略字段
func (p Policy) validate() error {
	if p.Pattern == "" {
		return errors.NewPolicyError(p.Pattern, "pattern cannot be empty")
	}
	if !p.Encryption.valid() {
		return errors.NewPolicyError(p.Pattern, "unknown encryption mode %q", p.Encryption)
	}
	if !p.SyncStrategy.valid() {
		return errors.NewPolicyError(p.Pattern, "unknown sync strategy %q", p.SyncStrategy)
	}
	if !p.ConflictResolution.valid() {
		return errors.NewPolicyError(p.Pattern, "unknown conflict resolution %q", p.ConflictResolution)
	}
	if p.TTL < 0 {
		return errors.NewPolicyError(p.Pattern, "negative ttl")
	}
	if p.RetentionPeriod < 0 {
		return errors.NewPolicyError(p.Pattern, "negative retention period")
	}
	return nil
}

// IsForbidden 检查后端是否被禁用
func (p Policy) IsForbidden(name string) bool {
	for _, f := range p.ForbiddenBackends {
		if f == name {
			return true
		}
	}
	return false
}
