package commands

import (
	"fmt"

	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/internal/report"
	"github.com/spf13/cobra"
)

var listOutputFormat string

var listCmd = &cobra.Command{
	Use:   "list [FOLDER]",
	Short: "List the files of a results folder",
	Long: `List every file under a results folder (recursively) with the
experiment it records, or 'invalid' when it does not parse.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one file per line

Examples:
  evaldb list
  evaldb list results/resnet --output=jsonl | jq 'select(.status=="invalid")'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(listOutputFormat, report.FormatDefault, report.FormatJSONL)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", listOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	cfg, s, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	folder := folderArg(cfg, args)
	files, err := s.ListFolder(cmd.Context(), folder)
	if err != nil {
		return storeError(cfg, "list", folder, err)
	}

	if _, err := report.WriteListing(cmd.OutOrStdout(), report.Inspect(files), format, folder); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}
	return nil
}
