// Package cmd 提供 polystore CLI 的命令框架
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polystore/internal/cli"
	"polystore/internal/config"
	"polystore/internal/core/router"
	"polystore/internal/version"
)

// 全局标志
var (
	configFile string
	noColor    bool
)

// out 全局输出工具
var out *cli.Output

// rootCmd 代表根命令
var rootCmd = &cobra.Command{
	Use:   "polystore",
	Short: "Polystore - policy-driven storage router",
	Long: `Polystore routes key-value operations across multiple storage backends
according to declarative policies: backend allowlists, capability
requirements, TTLs, and sync strategies.

Example:
  polystore get user.profile              Read a key
  polystore set ui.theme dark             Write a key
  polystore keys session                  List keys in a namespace
  polystore status                        Show backend health and metrics`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: polystore.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(namespacesCmd)

	cobra.OnInitialize(func() {
		out = cli.NewOutput(noColor)
	})
}

// buildRouter 按配置构建路由器；命令结束后由调用方关闭
func buildRouter(ctx context.Context) (*router.Router, error) {
	var (
		cfg *config.Config
		err error
	)

	switch {
	case configFile != "":
		cfg, err = config.LoadFile(configFile)
	default:
		// 未指定配置文件时尝试当前目录的 polystore.yaml
		if _, statErr := os.Stat("polystore.yaml"); statErr == nil {
			cfg, err = config.LoadFile("polystore.yaml")
		} else {
			cfg = config.Default()
		}
	}
	if err != nil {
		return nil, err
	}

	return config.Build(ctx, cfg)
}

// commandContext 返回随 SIGINT/SIGTERM 取消的上下文
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
