package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"polystore/internal/errors"
)

// =============================================================================
// YAML 策略配置加载
// =============================================================================

// RuleConfig 单条策略规则的 YAML 形式
// 时长字段使用 Go duration 字符串（"30m"、"720h"）
type RuleConfig struct {
	Pattern            string   `yaml:"pattern"`
	AllowedBackends    []string `yaml:"allowed_backends,omitempty"`
	ForbiddenBackends  []string `yaml:"forbidden_backends,omitempty"`
	TTL                string   `yaml:"ttl,omitempty"`
	Encryption         string   `yaml:"encryption,omitempty"`
	SyncStrategy       string   `yaml:"sync_strategy,omitempty"`
	ConflictResolution string   `yaml:"conflict_resolution,omitempty"`
	RetentionPeriod    string   `yaml:"retention_period,omitempty"`
}

// FileConfig 策略文件根结构
type FileConfig struct {
	Policies []RuleConfig `yaml:"policies"`
}

// toPolicy 转换为 Policy 值
func (rc *RuleConfig) toPolicy() (Policy, error) {
	p := Policy{
		Pattern:            rc.Pattern,
		AllowedBackends:    append([]string{}, rc.AllowedBackends...),
		ForbiddenBackends:  append([]string{}, rc.ForbiddenBackends...),
		Encryption:         Encryption(rc.Encryption),
		SyncStrategy:       SyncStrategy(rc.SyncStrategy),
		ConflictResolution: ConflictResolution(rc.ConflictResolution),
	}

	var err error
	if p.TTL, err = parseDuration(rc.TTL); err != nil {
		return Policy{}, errors.NewPolicyError(rc.Pattern, "invalid ttl %q", rc.TTL)
	}
	if p.RetentionPeriod, err = parseDuration(rc.RetentionPeriod); err != nil {
		return Policy{}, errors.NewPolicyError(rc.Pattern, "invalid retention_period %q", rc.RetentionPeriod)
	}

	// 空白枚举由 NewTable 的归一化填充默认值
	return p, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// FromConfigs 从规则配置构建策略表
func FromConfigs(configs []RuleConfig) (*Table, error) {
	rules := make([]Policy, 0, len(configs))
	for i := range configs {
		p, err := configs[i].toPolicy()
		if err != nil {
			return nil, err
		}
		rules = append(rules, p)
	}
	return NewTable(rules)
}

// Load 从 YAML 字节构建策略表
func Load(data []byte) (*Table, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy config: %w", err)
	}
	return FromConfigs(cfg.Policies)
}

// LoadFile 从 YAML 文件构建策略表
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Load(data)
}
