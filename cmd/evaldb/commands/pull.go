package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/internal/watch"
	"github.com/spf13/cobra"
)

var (
	pullOut  string
	pullWait time.Duration
)

var pullCmd = &cobra.Command{
	Use:   "pull PATH",
	Short: "Download a single file from the configured backend",
	Long: `Download one file from the configured backend and print it, or write
it to a local file with --out.

Examples:
  evaldb pull results/resnet-1.json
  evaldb pull tables/summary.json --out summary.json

  # Wait up to two minutes for a run that is still being pushed
  evaldb pull results/run-7.json --wait 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVarP(&pullOut, "out", "o", "", "Write to a local file instead of stdout")
	pullCmd.Flags().DurationVar(&pullWait, "wait", 0, "Poll until the file exists, up to this long")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, s, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var content string
	if pullWait > 0 {
		content, err = watch.PollForFile(cmd.Context(), s, args[0], pullWait)
	} else {
		content, err = s.ReadFile(cmd.Context(), args[0])
	}
	if err != nil {
		return storeError(cfg, "pull", args[0], err)
	}

	if pullOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), ensureNewline(content))
		return nil
	}

	if err := writeLocalFile(pullOut, content); err != nil {
		return printer.Error("failed to write file", err.Error(), nil)
	}
	printer.Success("Wrote %s\n", pullOut)
	return nil
}
