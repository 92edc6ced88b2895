package commands

import (
	"fmt"
	"log"

	"github.com/dyluth/evaldb/internal/filter"
	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/internal/report"
	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/spf13/cobra"
)

var (
	tableOutputFormat string
	tableExperiment   string
	tableColumns      []string
	tableStrict       bool
	tableSave         string
	tableMessage      string
)

var tableCmd = &cobra.Command{
	Use:   "table [FOLDER]",
	Short: "Aggregate a results folder into per-experiment tables",
	Long: `Read every record under a results folder and fold records sharing an
experiment name into one table: column name -> values, one value per run.

The first record of an experiment (in file name order) fixes its columns.
Records that do not parse, reuse a key across sections, or miss an
established column are skipped with a warning.

Output Formats:
  default - One grid per experiment
  json    - The aggregated table as JSON
  jsonl   - One JSON object per run
  csv     - One row per run over the union of all columns

Examples:
  evaldb table
  evaldb table results --experiment 'resnet-*' --columns lr,acc
  evaldb table --output=csv > runs.csv
  evaldb table --save tables/summary.json -m "Refresh summary"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTable,
}

func init() {
	tableCmd.Flags().StringVarP(&tableOutputFormat, "output", "o", "default", "Output format: default, json, jsonl or csv")
	tableCmd.Flags().StringVar(&tableExperiment, "experiment", "", "Only show experiments matching this glob pattern")
	tableCmd.Flags().StringSliceVar(&tableColumns, "columns", nil, "Only show these columns (comma-separated)")
	tableCmd.Flags().BoolVar(&tableStrict, "strict", false, "Skip records carrying columns their experiment does not have")
	tableCmd.Flags().StringVar(&tableSave, "save", "", "Also write the aggregated table to this store path")
	tableCmd.Flags().StringVarP(&tableMessage, "message", "m", "", "Commit message for --save")
	rootCmd.AddCommand(tableCmd)
}

func runTable(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(tableOutputFormat,
		report.FormatDefault, report.FormatJSON, report.FormatJSONL, report.FormatCSV)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", tableOutputFormat),
			[]string{"Valid formats: default, json, jsonl, csv"},
		)
	}

	criteria := &filter.Criteria{ExperimentGlob: tableExperiment, Columns: tableColumns}
	if err := criteria.Validate(); err != nil {
		return printer.Error("invalid filter", err.Error(), nil)
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

	reducer := &evaldb.Reducer{
		Strict: tableStrict || cfg.Reduce.Strict,
		Logger: log.New(cmd.ErrOrStderr(), "", 0),
	}
	table, failures := reducer.ReduceAll(files)
	if len(failures) > 0 {
		printer.Warning("Skipped %d of %d files\n", len(failures), len(files))
	}

	if criteria.HasFilters() {
		table = criteria.Apply(table)
	}

	if err := report.WriteTable(cmd.OutOrStdout(), table, format, folder); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	if tableSave == "" {
		return nil
	}

	text, err := table.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize table: %w", err)
	}
	result, err := s.WriteFile(cmd.Context(), tableSave, text, tableMessage)
	if err != nil {
		return storeError(cfg, "save", tableSave, err)
	}

	// Saving is reported on stderr so stdout stays machine-readable
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved table to %s on %s\n", result.Path, result.Backend)
	return nil
}
