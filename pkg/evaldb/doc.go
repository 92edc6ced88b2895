// Package evaldb provides the record model, canonical JSON serialization and
// result aggregation for evaldb.
//
// # Overview
//
// An evaluation attempt is captured as a Record: the experiment it belongs to,
// the model and training hyperparameters that were used, the resulting metrics
// and some free-form information (where the model was saved, which dataset it
// was trained on, a description). Each Record is stored as one JSON file in a
// store (local disk, a GitHub repository, a Hugging Face repository, Redis or
// SQLite - see package store).
//
// Aggregation reads every file under a folder and folds the records into a
// Table: for each experiment, one column per hyperparameter or metric, holding
// the values of every run in the order the files were folded.
//
// # Usage Example
//
//	import "github.com/dyluth/evaldb/pkg/evaldb"
//
//	rec, err := evaldb.NewRecord("resnet-sweep",
//		evaldb.Information{SaveLink: evaldb.String("s3://models/resnet-7")},
//		map[string]any{"lr": 0.1},
//		map[string]any{"epochs": 30},
//		map[string]any{"acc": 0.91},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	text, err := rec.Serialize()
//	// text is 4-space indented JSON, ready to push to a store
//
//	files, err := st.ListFolder(ctx, "results")
//	table, skipped := evaldb.ReduceAll(files)
//	// table["resnet-sweep"]["acc"] == []any{0.91, ...}
//
// # Flattening
//
// Before folding, a Record is flattened into a single map: the model
// hyperparameters, the training hyperparameters and the results, plus the key
// "information" holding the information object. The three maps must not share
// keys and must not use "information"; Flatten reports a KeyCollisionError
// rather than letting one value silently replace another.
//
// # Column Sets
//
// The first record folded for an experiment fixes that experiment's columns.
// Later records must provide every one of those columns (SchemaMismatchError
// otherwise). Extra columns are ignored by Fold, or rejected by a Reducer in
// strict mode.
//
// # Failure Policy
//
// Aggregation is best-effort. A file that fails to parse, flatten or fold is
// logged, reported back to the caller as a *FileError and skipped; it never
// aborts the pass.
package evaldb
