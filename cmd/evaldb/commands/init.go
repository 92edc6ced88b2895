package commands

import (
	"fmt"
	"os"

	"github.com/dyluth/evaldb/internal/config"
	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new evaldb project",
	Long: `Initialize a new evaldb project in the current directory.

Creates:
  • evaldb.yml - Backend and aggregation configuration
  • results/   - Default folder for evaluation records

Use --force to replace an existing evaldb.yml. Records are never removed.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	// No -f shorthand; it reads like a file flag next to --config
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Replace an existing evaldb.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if !forceInit {
		if err := scaffold.CheckExisting(dir); err != nil {
			return printer.Error(
				"project already initialized",
				fmt.Sprintf("Found existing %s in %s", config.DefaultPath, dir),
				[]string{"Reinitialize (overwrites the configuration, keeps records):\n  evaldb init --force"},
			)
		}
	}

	if err := scaffold.Initialize(dir, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(cmd.OutOrStdout())
	return nil
}
