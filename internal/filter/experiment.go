package filter

import (
	"fmt"
	"path"

	"github.com/dyluth/evaldb/pkg/evaldb"
)

// Criteria narrows an aggregated table.
// Both filters are ANDed together; zero values match everything.
type Criteria struct {
	ExperimentGlob string   // Glob pattern for experiment names, empty = no filter
	Columns        []string // Columns to keep, empty = all columns
}

// Validate checks that the glob pattern is well formed.
func (c *Criteria) Validate() error {
	if c.ExperimentGlob == "" {
		return nil
	}
	if _, err := path.Match(c.ExperimentGlob, ""); err != nil {
		return fmt.Errorf("invalid experiment pattern '%s': %w", c.ExperimentGlob, err)
	}
	return nil
}

// Matches returns true if the experiment name matches the glob pattern.
func (c *Criteria) Matches(experimentName string) bool {
	if c.ExperimentGlob == "" {
		return true
	}
	matched, err := path.Match(c.ExperimentGlob, experimentName)
	return err == nil && matched
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.ExperimentGlob != "" || len(c.Columns) > 0
}

// Apply returns a new table holding the matching experiments, each reduced
// to the requested columns. Requested columns an experiment does not have are
// skipped. The input table is not modified.
func (c *Criteria) Apply(table evaldb.Table) evaldb.Table {
	result := make(evaldb.Table, len(table))
	for name, exp := range table {
		if !c.Matches(name) {
			continue
		}
		if len(c.Columns) == 0 {
			result[name] = exp
			continue
		}

		kept := make(evaldb.Experiment, len(c.Columns))
		for _, col := range c.Columns {
			if values, ok := exp[col]; ok {
				kept[col] = values
			}
		}
		result[name] = kept
	}
	return result
}
