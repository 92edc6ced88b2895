// Package report renders aggregated evaluation tables and folder listings
// for the terminal and for downstream tools.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/olekukonko/tablewriter"
)

// Format specifies how command output is rendered.
type Format string

const (
	// FormatDefault renders human-readable grids
	FormatDefault Format = "default"

	// FormatJSON renders the whole table as one indented JSON document
	FormatJSON Format = "json"

	// FormatJSONL renders one JSON object per line
	FormatJSONL Format = "jsonl"

	// FormatCSV renders comma-separated rows with a header
	FormatCSV Format = "csv"
)

// ParseFormat validates a user-supplied format name against the allowed set.
// An empty name selects FormatDefault.
func ParseFormat(name string, allowed ...Format) (Format, error) {
	if name == "" {
		return FormatDefault, nil
	}
	names := make([]string, 0, len(allowed))
	for _, f := range allowed {
		if string(f) == name {
			return f, nil
		}
		names = append(names, string(f))
	}
	return "", fmt.Errorf("unsupported format '%s' (must be one of %s)", name, strings.Join(names, ", "))
}

// RunRow is one run of one experiment, as emitted by FormatJSONL.
type RunRow struct {
	Experiment string         `json:"experiment"`
	Run        int            `json:"run"`
	Values     map[string]any `json:"values"`
}

// WriteTable renders an aggregated table in the requested format.
// folder is only used in the message printed for an empty table.
func WriteTable(w io.Writer, table evaldb.Table, format Format, folder string) error {
	switch format {
	case FormatDefault, "":
		return writeGrids(w, table, folder)
	case FormatJSON:
		text, err := table.Serialize()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	case FormatJSONL:
		return writeRunsJSONL(w, table)
	case FormatCSV:
		return writeRunsCSV(w, table)
	default:
		return fmt.Errorf("unsupported format '%s'", format)
	}
}

// Rows flattens a table into per-run rows, experiments in name order.
func Rows(table evaldb.Table) []RunRow {
	var rows []RunRow
	for _, name := range table.Experiments() {
		exp := table[name]
		for i := 0; i < exp.Runs(); i++ {
			values := make(map[string]any, len(exp))
			for col, seq := range exp {
				if i < len(seq) {
					values[col] = seq[i]
				}
			}
			rows = append(rows, RunRow{Experiment: name, Run: i + 1, Values: values})
		}
	}
	return rows
}

func writeGrids(w io.Writer, table evaldb.Table, folder string) error {
	names := table.Experiments()
	if len(names) == 0 {
		fmt.Fprintf(w, "No evaluation records found in '%s'\n", folder)
		return nil
	}

	for i, name := range names {
		exp := table[name]
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Experiment '%s' (%s):\n", name, plural(exp.Runs(), "run", "runs"))

		columns := exp.Columns()
		grid := make([][]string, exp.Runs())
		for run := range grid {
			row := make([]string, 0, len(columns)+1)
			row = append(row, strconv.Itoa(run+1))
			for _, col := range columns {
				row = append(row, gridCell(exp[col], run))
			}
			grid[run] = row
		}

		t := tablewriter.NewWriter(w)
		t.Header(headerRow(append([]string{"run"}, columns...))...)
		if err := t.Bulk(grid); err != nil {
			return fmt.Errorf("failed to render experiment '%s': %w", name, err)
		}
		if err := t.Render(); err != nil {
			return fmt.Errorf("failed to render experiment '%s': %w", name, err)
		}
	}

	fmt.Fprintf(w, "\n%s found\n", plural(len(names), "experiment", "experiments"))
	return nil
}

func writeRunsJSONL(w io.Writer, table evaldb.Table) error {
	for _, row := range Rows(table) {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal run to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// writeRunsCSV writes one row per run over the union of every experiment's
// columns. Cells for columns an experiment lacks are empty.
func writeRunsCSV(w io.Writer, table evaldb.Table) error {
	union := evaldb.Experiment{}
	for _, exp := range table {
		for col := range exp {
			union[col] = nil
		}
	}
	columns := union.Columns()

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"experiment", "run"}, columns...)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range Rows(table) {
		record := make([]string, 0, len(columns)+2)
		record = append(record, row.Experiment, strconv.Itoa(row.Run))
		for _, col := range columns {
			v, ok := row.Values[col]
			if !ok || v == nil {
				record = append(record, "")
				continue
			}
			record = append(record, FormatValue(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders a single cell: strings as-is, everything else as
// compact JSON.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func gridCell(seq []any, run int) string {
	if run >= len(seq) || seq[run] == nil {
		return "-"
	}
	return FormatValue(seq[run])
}

func headerRow(cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
