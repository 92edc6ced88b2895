package commands

import (
	"os"
	"path"
	"path/filepath"

	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/dyluth/evaldb/pkg/store"
	"github.com/spf13/cobra"
)

var (
	pushPath      string
	pushMessage   string
	pushSkipCheck bool
)

var pushCmd = &cobra.Command{
	Use:   "push FILE",
	Short: "Upload a local file to the configured backend",
	Long: `Upload a local record (or validation, or saved table) to the configured
backend. The destination is overwritten if it exists and created otherwise.

The file must parse as a record, a validation or a table unless
--skip-check is given.

Examples:
  evaldb push run.json
  evaldb push run.json --path results/resnet/run-1.json -m "Add resnet run"`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushPath, "path", "", "Destination path in the store (default: <folder>/<file name>)")
	pushCmd.Flags().StringVarP(&pushMessage, "message", "m", "", "Commit message (default: \"Update <path>\")")
	pushCmd.Flags().BoolVar(&pushSkipCheck, "skip-check", false, "Upload without checking the content")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	data, err := os.ReadFile(localPath)
	if err != nil {
		return printer.Error(
			"failed to read file",
			err.Error(),
			[]string{"Check the file path"},
		)
	}
	content := string(data)

	if !pushSkipCheck {
		if err := checkDocument(content); err != nil {
			return printer.ErrorWithContext(
				"file is not an evaluation document",
				err.Error(),
				map[string]string{"File": localPath},
				[]string{"Fix the file", "Upload it anyway with --skip-check"},
			)
		}
	}

	cfg, s, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dest := pushPath
	if dest == "" {
		dest = path.Join(cfg.Folder, filepath.Base(localPath))
	}

	result, err := s.WriteFile(cmd.Context(), dest, content, pushMessage)
	if err != nil {
		return storeError(cfg, "push", dest, err)
	}
	printPushResult(result)
	return nil
}

// checkDocument accepts records, validations and saved tables. The error
// returned is the record parse failure, the most common intent.
func checkDocument(content string) error {
	rec, recErr := evaldb.Deserialize(content)
	if recErr == nil {
		_, _, recErr = rec.Flatten()
		return recErr
	}
	if _, err := evaldb.DeserializeValidation(content); err == nil {
		return nil
	}
	if _, err := evaldb.DeserializeTable(content); err == nil {
		return nil
	}
	return recErr
}

func printPushResult(result *store.WriteResult) {
	action := "Updated"
	if result.Created {
		action = "Created"
	}
	if result.Revision != "" {
		printer.Success("%s %s on %s (revision %s)\n", action, result.Path, result.Backend, result.Revision)
		return
	}
	printer.Success("%s %s on %s\n", action, result.Path, result.Backend)
}

