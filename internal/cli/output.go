// Package cli 提供命令行彩色输出工具
package cli

import (
	"fmt"

	"github.com/fatih/color"

	"polystore/internal/core/backend"
)

var (
	// 颜色函数
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorWarning = color.New(color.FgYellow).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
	colorFaint   = color.New(color.Faint).SprintFunc()
)

// Output 提供结构化的输出接口
type Output struct {
	noColor bool
}

// NewOutput 创建输出工具
func NewOutput(noColor bool) *Output {
	color.NoColor = noColor
	return &Output{noColor: noColor}
}

// Success 输出成功消息
func (o *Output) Success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", colorSuccess("✓"), fmt.Sprintf(format, args...))
}

// Error 输出错误消息
func (o *Output) Error(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", colorError("✗"), fmt.Sprintf(format, args...))
}

// Warning 输出警告消息
func (o *Output) Warning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", colorWarning("!"), fmt.Sprintf(format, args...))
}

// Info 输出信息消息
func (o *Output) Info(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", colorInfo("·"), fmt.Sprintf(format, args...))
}

// Plain 输出普通消息（无颜色）
func (o *Output) Plain(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}

// Field 输出键值对行
func (o *Output) Field(name string, value interface{}) {
	fmt.Printf("  %s %v\n", colorFaint(name+":"), value)
}

// Title 输出标题
func (o *Output) Title(format string, args ...interface{}) {
	fmt.Printf("%s\n", colorBold(fmt.Sprintf(format, args...)))
}

// State 按后端状态着色输出
func (o *Output) State(s backend.State) string {
	switch s {
	case backend.StateHealthy:
		return colorSuccess(string(s))
	case backend.StateDegraded:
		return colorWarning(string(s))
	case backend.StateUnhealthy:
		return colorError(string(s))
	default:
		return colorFaint(string(s))
	}
}
