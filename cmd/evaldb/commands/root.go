package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/evaldb/internal/backend"
	"github.com/dyluth/evaldb/internal/config"
	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/pkg/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath      string
	backendOverride string
	envFile         string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evaldb",
	Short: "evaldb - Store and aggregate ML evaluation records",
	Long: `evaldb stores small JSON records describing evaluation runs
(experiment name, hyperparameters, results) in a local folder, a GitHub
repository, a Hugging Face Hub repository, Redis or SQLite, and folds every
record of a folder into one table per experiment.`,
	Version: version,
	// Unknown flags on the root command are an error, not a silent no-op
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
		return loadEnvFile(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Errors are printed by the printer package, not by cobra
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to evaldb.yml")
	rootCmd.PersistentFlags().StringVar(&backendOverride, "backend", "", "Override the configured backend (local, github, huggingface, redis, sqlite)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file holding backend tokens")
}

// loadEnvFile loads the environment file if present. A missing default
// .env is fine; a missing file named explicitly is not.
func loadEnvFile(cmd *cobra.Command) error {
	if _, err := os.Stat(envFile); err != nil {
		if cmd.Flags().Changed("env-file") {
			return printer.Error(
				"environment file not found",
				fmt.Sprintf("Cannot read %s: %v", envFile, err),
				[]string{"Check the --env-file path"},
			)
		}
		return nil
	}

	// Variables already set in the environment take precedence
	if err := godotenv.Load(envFile); err != nil {
		return printer.Error(
			"invalid environment file",
			fmt.Sprintf("Failed to parse %s: %v", envFile, err),
			nil,
		)
	}
	return nil
}

// loadConfig reads evaldb.yml, falling back to defaults when the default
// file does not exist, and applies --backend.
func loadConfig(cmd *cobra.Command) (*config.EvalConfig, error) {
	var cfg *config.EvalConfig

	if _, statErr := os.Stat(configPath); statErr != nil && !cmd.Flags().Changed("config") {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"failed to load configuration",
				err.Error(),
				map[string]string{"Config": configPath},
				[]string{"Create one with:\n  evaldb init"},
			)
		}
		cfg = loaded
	}

	if backendOverride != "" {
		cfg.Backend = backendOverride
		if err := cfg.Validate(); err != nil {
			return nil, printer.Error(
				"invalid backend override",
				err.Error(),
				[]string{fmt.Sprintf("Configure the %s section in %s", backendOverride, configPath)},
			)
		}
	}

	return cfg, nil
}

// openStore loads the configuration and opens its store. The returned
// cleanup must be called once the store is no longer needed.
func openStore(cmd *cobra.Command) (*config.EvalConfig, store.Store, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	s, err := backend.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, printer.ErrorWithContext(
			"failed to open store",
			err.Error(),
			map[string]string{"Backend": backend.Describe(cfg)},
			nil,
		)
	}

	cleanup := func() {
		if err := backend.Close(s); err != nil {
			printer.Warning("Failed to close store: %v\n", err)
		}
	}
	return cfg, s, cleanup, nil
}

// storeError turns a store failure into a formatted CLI error.
func storeError(cfg *config.EvalConfig, op, p string, err error) error {
	details := map[string]string{
		"Backend": backend.Describe(cfg),
		"Path":    p,
	}

	switch {
	case store.IsNotFound(err):
		return printer.ErrorWithContext(
			fmt.Sprintf("'%s' not found", p),
			fmt.Sprintf("The %s backend has nothing at this path.", cfg.Backend),
			details,
			[]string{"Check the path and the configured backend"},
		)
	case store.IsAuth(err):
		return printer.ErrorWithContext(
			"authentication failed",
			err.Error(),
			details,
			[]string{
				fmt.Sprintf("Set a valid token in the environment variable named by %s.token_env", cfg.Backend),
				"Add the token to .env",
			},
		)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s cancelled", op)
	default:
		return printer.ErrorWithContext(
			fmt.Sprintf("%s failed", op),
			err.Error(),
			details,
			nil,
		)
	}
}

// folderArg returns the folder argument or the configured default.
func folderArg(cfg *config.EvalConfig, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Folder
}
