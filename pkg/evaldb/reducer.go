package evaldb

import (
	"log"
	"sort"
	"strings"
)

// Reducer folds raw record files into a Table.
// A Reducer holds no table state; every ReduceAll call builds a fresh table.
type Reducer struct {
	// Strict rejects records that carry columns the experiment does not have,
	// instead of folding them with the extra columns dropped.
	Strict bool

	// Logger receives skip and warning messages. Defaults to the standard logger.
	Logger *log.Logger
}

// ReduceAll folds files (identifier -> raw text) with a default Reducer.
func ReduceAll(files map[string]string) (Table, []error) {
	return (&Reducer{}).ReduceAll(files)
}

// ReduceAll parses, flattens and folds every file into a new table. Files are
// processed in lexicographic order of their identifiers, which fixes the order
// of values within each column.
//
// A file that fails at any step is logged and skipped; its failure is returned
// as a *FileError in the second result. The table holds every record that
// folded successfully.
func (r *Reducer) ReduceAll(files map[string]string) (Table, []error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	table := Table{}
	var failures []error

	for _, name := range names {
		rec, err := Deserialize(files[name])
		if err == nil {
			table, err = r.Fold(table, rec)
		}
		if err != nil {
			r.logf("[Reducer] Skipping %s: %v", name, err)
			failures = append(failures, &FileError{Name: name, Err: err})
			continue
		}
	}

	return table, failures
}

// Fold flattens rec and folds it into table, applying the reducer's strictness.
func (r *Reducer) Fold(table Table, rec *Record) (Table, error) {
	name, flat, err := rec.Flatten()
	if err != nil {
		return table, err
	}

	if existing, ok := table[name]; ok {
		if extra := existing.extraIn(flat); len(extra) > 0 {
			if r.Strict {
				return table, &SchemaMismatchError{
					Experiment: name,
					Missing:    existing.missingFrom(flat),
					Extra:      extra,
				}
			}
			r.logf("[Reducer] Ignoring columns %s not established for experiment '%s'", strings.Join(extra, ", "), name)
		}
	}

	return Fold(table, flat, name)
}

func (r *Reducer) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
