package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dyluth/evaldb/pkg/evaldb"
	"github.com/olekukonko/tablewriter"
)

// Entry statuses reported by Inspect.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
)

// Entry describes one file of a results folder.
type Entry struct {
	Path       string `json:"path"`
	Experiment string `json:"experiment,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Inspect parses every file and reports whether it holds a valid record,
// ordered by path.
func Inspect(files map[string]string) []Entry {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entry := Entry{Path: p, Status: StatusOK}
		rec, err := evaldb.Deserialize(files[p])
		if err == nil {
			_, _, err = rec.Flatten()
		}
		if err != nil {
			entry.Status = StatusInvalid
			entry.Error = err.Error()
		} else {
			entry.Experiment = rec.ExperimentName
		}
		entries = append(entries, entry)
	}
	return entries
}

// WriteListing renders entries as a grid (FormatDefault) or as JSONL.
// Returns the number of entries written.
func WriteListing(w io.Writer, entries []Entry, format Format, folder string) (int, error) {
	switch format {
	case FormatJSONL:
		for _, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return 0, fmt.Errorf("failed to marshal entry to JSON: %w", err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
				return 0, fmt.Errorf("failed to write JSONL output: %w", err)
			}
		}
		return len(entries), nil
	case FormatDefault, "":
	default:
		return 0, fmt.Errorf("unsupported format '%s'", format)
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "No files found in '%s'\n", folder)
		return 0, nil
	}

	fmt.Fprintf(w, "Files in '%s':\n\n", folder)

	rows := make([][]string, 0, len(entries))
	invalid := 0
	for _, e := range entries {
		experiment := e.Experiment
		if experiment == "" {
			experiment = "-"
		}
		status := e.Status
		if e.Status == StatusInvalid {
			invalid++
		}
		rows = append(rows, []string{e.Path, experiment, status})
	}

	t := tablewriter.NewWriter(w)
	t.Header("path", "experiment", "status")
	if err := t.Bulk(rows); err != nil {
		return 0, fmt.Errorf("failed to render listing: %w", err)
	}
	if err := t.Render(); err != nil {
		return 0, fmt.Errorf("failed to render listing: %w", err)
	}

	fmt.Fprintf(w, "\n%s found", plural(len(entries), "file", "files"))
	if invalid > 0 {
		fmt.Fprintf(w, " (%d invalid)", invalid)
	}
	fmt.Fprintln(w)

	return len(entries), nil
}
