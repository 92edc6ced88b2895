package commands

import (
	"fmt"

	"github.com/dyluth/evaldb/internal/config"
	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/internal/watch"
	"github.com/dyluth/evaldb/pkg/store"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream file writes on the Redis backend",
	Long: `Stream every file written to the Redis backend as it happens.

Output Formats:
  default - Human-readable lines with timestamps
  json    - Line-delimited JSON for programmatic processing

Press Ctrl+C to stop.

Examples:
  evaldb watch --backend redis
  evaldb watch --output=json > writes.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchOutputFormat != string(watch.OutputFormatDefault) && watchOutputFormat != string(watch.OutputFormatJSON) {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, s, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rs, ok := s.(*store.RedisStore)
	if !ok {
		return printer.Error(
			"watch requires the redis backend",
			fmt.Sprintf("The configured backend is '%s', which does not publish write events.", cfg.Backend),
			[]string{
				"Run with --backend redis",
				fmt.Sprintf("Set 'backend: %s' in %s", config.BackendRedis, configPath),
			},
		)
	}

	ctx := cmd.Context()
	sub, err := rs.Subscribe(ctx)
	if err != nil {
		return storeError(cfg, "subscribe", "", err)
	}
	defer sub.Close()

	if watchOutputFormat == "default" {
		printer.Info("Watching namespace '%s' (Ctrl+C to stop)\n", cfg.Redis.Namespace)
	}

	return watch.Stream(ctx, sub, cmd.OutOrStdout(), watch.OutputFormat(watchOutputFormat))
}
