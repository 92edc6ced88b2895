package evaldb

import (
	"sort"
)

// Table is the aggregated result of many records: experiment name to that
// experiment's columns.
type Table map[string]Experiment

// Experiment maps a column name to the values of every run folded into the
// experiment, in fold order. All columns of an experiment have the same length.
type Experiment map[string][]any

// Fold merges one flattened record into the table and returns the table.
//
// If the experiment is new, its columns become exactly the keys of flat. If it
// already exists, the value of every established column is appended; keys of
// flat that are not established columns are ignored. Returns a
// *SchemaMismatchError, leaving the table unchanged, if flat lacks any
// established column.
func Fold(table Table, flat map[string]any, experimentName string) (Table, error) {
	if table == nil {
		table = Table{}
	}

	existing, ok := table[experimentName]
	if !ok {
		exp := make(Experiment, len(flat))
		for k, v := range flat {
			exp[k] = []any{v}
		}
		table[experimentName] = exp
		return table, nil
	}

	if missing := existing.missingFrom(flat); len(missing) > 0 {
		return table, &SchemaMismatchError{Experiment: experimentName, Missing: missing}
	}

	for k := range existing {
		existing[k] = append(existing[k], flat[k])
	}

	return table, nil
}

// Experiments returns the experiment names in lexicographic order.
func (t Table) Experiments() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns the column names in lexicographic order with the
// information column last.
func (e Experiment) Columns() []string {
	cols := make([]string, 0, len(e))
	hasInfo := false
	for name := range e {
		if name == InformationKey {
			hasInfo = true
			continue
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	if hasInfo {
		cols = append(cols, InformationKey)
	}
	return cols
}

// Runs returns the number of records folded into the experiment.
func (e Experiment) Runs() int {
	for _, values := range e {
		return len(values)
	}
	return 0
}

// missingFrom returns the established columns absent from flat, sorted.
func (e Experiment) missingFrom(flat map[string]any) []string {
	var missing []string
	for k := range e {
		if _, ok := flat[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// extraIn returns the keys of flat that are not established columns, sorted.
func (e Experiment) extraIn(flat map[string]any) []string {
	var extra []string
	for k := range flat {
		if _, ok := e[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}
