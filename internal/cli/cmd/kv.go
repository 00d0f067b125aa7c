package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// getCmd 读取键
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a key through the policy router",
	Long: `Read a key. The key's policy decides which backends are consulted
and in what order.

Example:
  polystore get user.profile
  polystore get ui.theme --config polystore.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// setCmd 写入键
var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key through the policy router",
	Long: `Write a key. The key's policy decides the target backend, TTL
and encryption requirements.

Example:
  polystore set ui.theme dark
  polystore set session.token abc123`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

// delCmd 删除键
var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runDel,
}

// keysCmd 列出命名空间下的键
var keysCmd = &cobra.Command{
	Use:   "keys <namespace>",
	Short: "List all keys and values in a namespace",
	Long: `List every key in a namespace with its value size.

Example:
  polystore keys session
  polystore keys ui`,
	Args: cobra.ExactArgs(1),
	RunE: runKeys,
}

// clearCmd 清空命名空间
var clearCmd = &cobra.Command{
	Use:   "clear <namespace>",
	Short: "Delete all keys in a namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	key := args[0]
	start := time.Now()
	value, found, err := r.Get(ctx, key)
	if err != nil {
		out.Error("get %s: %v", key, err)
		return err
	}
	if !found {
		out.Warning("key not found: %s", key)
		return nil
	}

	fmt.Println(string(value))
	out.Info("%d bytes in %s", len(value), time.Since(start).Round(time.Microsecond))
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	key, value := args[0], args[1]
	if err := r.Set(ctx, key, []byte(value)); err != nil {
		out.Error("set %s: %v", key, err)
		return err
	}

	out.Success("stored %s (%d bytes)", key, len(value))
	return nil
}

func runDel(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	key := args[0]
	// 删除不存在的键视为成功，不需要区分未找到
	if err := r.Delete(ctx, key); err != nil {
		out.Error("del %s: %v", key, err)
		return err
	}

	out.Success("deleted %s", key)
	return nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	ns := args[0]
	entries, err := r.Namespace(ctx, ns)
	if err != nil {
		out.Error("keys %s: %v", ns, err)
		return err
	}
	if len(entries) == 0 {
		out.Info("namespace %s is empty", ns)
		return nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out.Title("namespace %s (%d keys)", ns, len(keys))
	for _, k := range keys {
		out.Field(k, fmt.Sprintf("%d bytes", len(entries[k])))
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	r, err := buildRouter(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	ns := args[0]
	if err := r.ClearNamespace(ctx, ns); err != nil {
		out.Error("clear %s: %v", ns, err)
		return err
	}

	out.Success("cleared namespace %s", ns)
	return nil
}
