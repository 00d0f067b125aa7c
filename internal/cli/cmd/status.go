package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"polystore/internal/admin"
	"polystore/internal/core/backend"
)

// statusCmd 查看后端状态与指标
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health, capabilities and metrics",
	Long: `Collect a status report from every configured backend: health state,
declared capabilities, key counts and per-backend operation metrics.

Example:
  polystore status
  polystore status --config polystore.yaml`,
	RunE: runStatus,
}

// namespacesCmd 查看命名空间统计
var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "Show per-namespace key statistics across backends",
	RunE:  runNamespaces,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	facade := admin.New(r.Registry())
	reports := facade.ProviderStatuses(ctx)

	out.Title("backends (%d)", len(reports))
	for _, rep := range reports {
		fmt.Println()
		out.Plain("%s  %s", rep.Name, out.State(rep.State))
		if rep.Message != "" {
			out.Field("message", rep.Message)
		}
		if caps := capsLine(rep.Capabilities); caps != "" {
			out.Field("capabilities", caps)
		}
		if rep.State == backend.StateHealthy || rep.State == backend.StateDegraded {
			out.Field("keys", rep.KeyCount)
			out.Field("used", fmt.Sprintf("%d bytes", rep.UsedBytes))
		}
		out.Field("ops", fmt.Sprintf("get=%d set=%d del=%d errors=%d fallbacks=%d",
			rep.Metrics.Gets, rep.Metrics.Sets, rep.Metrics.Deletes,
			rep.Metrics.Errors, rep.Metrics.Fallbacks))
		if rep.Metrics.AvgGetLatencyNs > 0 {
			out.Field("avg get", time.Duration(rep.Metrics.AvgGetLatencyNs))
		}
	}
	return nil
}

func runNamespaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	facade := admin.New(r.Registry())
	infos := facade.NamespaceInfos(ctx)
	if len(infos) == 0 {
		out.Info("no namespaces")
		return nil
	}

	out.Title("namespaces (%d)", len(infos))
	for _, info := range infos {
		out.Field(info.Namespace, fmt.Sprintf("%d keys, %d bytes", info.KeyCount, info.TotalBytes))
	}
	return nil
}

func capsLine(caps []backend.Capability) string {
	parts := make([]string, 0, len(caps))
	for _, c := range caps {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}
