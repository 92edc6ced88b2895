package commands

import (
	"fmt"

	"github.com/dyluth/evaldb/internal/printer"
	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/spf13/cobra"
)

var (
	recordExperiment   string
	recordModel        []string
	recordTrain        []string
	recordResult       []string
	recordSaveLink     string
	recordTrainDataset string
	recordDescription  string
	recordOut          string
	recordPush         bool
	recordPath         string
	recordMessage      string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Create an evaluation record",
	Long: `Create one evaluation record from hyperparameters and results.

Values are parsed as JSON when possible (0.1, true, [1,2]) and kept as
strings otherwise. Keys must be unique across --model, --train and --result.

Without --out or --push the record is printed to stdout.

Examples:
  # Print a record
  evaldb record --experiment resnet --model lr=0.1 --result acc=0.91

  # Push it to the configured backend under results/
  evaldb record --experiment resnet --model lr=0.1 --train epochs=30 \
    --result acc=0.91 --description "baseline" --push

  # Push to an explicit path with a commit message
  evaldb record --experiment resnet --result acc=0.91 \
    --push --path results/resnet/run-1.json --message "Add resnet run 1"`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordExperiment, "experiment", "e", "", "Experiment name (required)")
	recordCmd.Flags().StringArrayVar(&recordModel, "model", nil, "Model hyperparameter key=value (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordTrain, "train", nil, "Training hyperparameter key=value (repeatable)")
	recordCmd.Flags().StringArrayVar(&recordResult, "result", nil, "Result metric key=value (repeatable)")
	recordCmd.Flags().StringVar(&recordSaveLink, "save-link", "", "Where the trained model is saved")
	recordCmd.Flags().StringVar(&recordTrainDataset, "train-dataset", "", "Dataset the model was trained on")
	recordCmd.Flags().StringVar(&recordDescription, "description", "", "Free-form description")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Write the record to a local file")
	recordCmd.Flags().BoolVar(&recordPush, "push", false, "Push the record to the configured backend")
	recordCmd.Flags().StringVar(&recordPath, "path", "", "Store path for --push (default: <folder>/<experiment>-<uuid>.json)")
	recordCmd.Flags().StringVarP(&recordMessage, "message", "m", "", "Commit message for --push (default: \"Update <path>\")")
	recordCmd.MarkFlagRequired("experiment")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	sections := []struct {
		flag   string
		values []string
	}{
		{"model", recordModel},
		{"train", recordTrain},
		{"result", recordResult},
	}
	maps := make([]map[string]any, len(sections))
	for i, s := range sections {
		m, err := parseAssignments(s.values)
		if err != nil {
			return printer.Error(
				fmt.Sprintf("invalid --%s value", s.flag),
				err.Error(),
				[]string{fmt.Sprintf("Use --%s key=value", s.flag)},
			)
		}
		maps[i] = m
	}

	var info evaldb.Information
	if recordSaveLink != "" {
		info.SaveLink = evaldb.String(recordSaveLink)
	}
	if recordTrainDataset != "" {
		info.TrainDataset = evaldb.String(recordTrainDataset)
	}
	if recordDescription != "" {
		info.Description = evaldb.String(recordDescription)
	}

	rec, err := evaldb.NewRecord(recordExperiment, info, maps[0], maps[1], maps[2])
	if err != nil {
		return printer.Error("invalid record", err.Error(), nil)
	}

	// Reject colliding keys now rather than when the table is built
	if _, _, err := rec.Flatten(); err != nil {
		return printer.Error(
			"invalid record",
			err.Error(),
			[]string{"Rename the key so it appears in only one of --model, --train and --result"},
		)
	}

	text, err := rec.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	return emitDocument(cmd, text, recordOut, recordPush, recordPath, recordMessage, recordExperiment)
}

// emitDocument prints, writes and/or pushes a serialized document.
func emitDocument(cmd *cobra.Command, text, out string, push bool, storePath, message, namePrefix string) error {
	if out == "" && !push {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	if out != "" {
		if err := writeLocalFile(out, text); err != nil {
			return printer.Error("failed to write file", err.Error(), nil)
		}
		printer.Success("Wrote %s\n", out)
	}

	if !push {
		return nil
	}

	cfg, s, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if storePath == "" {
		storePath = defaultRecordPath(cfg.Folder, namePrefix)
	}

	result, err := s.WriteFile(cmd.Context(), storePath, text, message)
	if err != nil {
		return storeError(cfg, "push", storePath, err)
	}
	printPushResult(result)
	return nil
}
