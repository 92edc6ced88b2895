package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/spf13/cobra"
)

var (
	validationScore     string
	validationInstances string
	validationMeta      []string
	validationOut       string
	validationPush      bool
	validationPath      string
	validationMessage   string
)

var validationCmd = &cobra.Command{
	Use:   "validation",
	Short: "Create a validation record",
	Long: `Create a validation record: a score, the example instances it was
computed over, and free-form metadata.

Examples:
  evaldb validation --score 0.87 --instances examples.json --meta split=dev
  evaldb validation --score '{"f1": 0.8}' --push --path validations/dev.json`,
	Args: cobra.NoArgs,
	RunE: runValidation,
}

func init() {
	validationCmd.Flags().StringVar(&validationScore, "score", "", "Score, parsed as JSON when possible (required)")
	validationCmd.Flags().StringVar(&validationInstances, "instances", "", "JSON file holding an array of validated instances")
	validationCmd.Flags().StringArrayVar(&validationMeta, "meta", nil, "Metadata key=value (repeatable)")
	validationCmd.Flags().StringVarP(&validationOut, "out", "o", "", "Write the validation to a local file")
	validationCmd.Flags().BoolVar(&validationPush, "push", false, "Push the validation to the configured backend")
	validationCmd.Flags().StringVar(&validationPath, "path", "", "Store path for --push (default: <folder>/validation-<uuid>.json)")
	validationCmd.Flags().StringVarP(&validationMessage, "message", "m", "", "Commit message for --push")
	validationCmd.MarkFlagRequired("score")
	rootCmd.AddCommand(validationCmd)
}

func runValidation(cmd *cobra.Command, args []string) error {
	meta, err := parseAssignments(validationMeta)
	if err != nil {
		return printer.Error("invalid --meta value", err.Error(), []string{"Use --meta key=value"})
	}

	var instances []any
	if validationInstances != "" {
		data, err := os.ReadFile(validationInstances)
		if err != nil {
			return printer.Error("failed to read instances", err.Error(), nil)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&instances); err != nil {
			return printer.ErrorWithContext(
				"invalid instances file",
				"The file must hold a JSON array.",
				map[string]string{"File": validationInstances, "Error": err.Error()},
				nil,
			)
		}
	}

	v := evaldb.NewValidation(parseValue(validationScore), instances, meta)
	text, err := v.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize validation: %w", err)
	}

	return emitDocument(cmd, text, validationOut, validationPush, validationPath, validationMessage, "validation")
}
