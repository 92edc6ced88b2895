package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// parseAssignments turns key=value flags into a map. Values are decoded as
// JSON when they parse (0.1, true, [1,2], "quoted"), otherwise kept as
// plain strings.
func parseAssignments(assignments []string) (map[string]any, error) {
	values := make(map[string]any, len(assignments))
	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment '%s' (expected key=value)", a)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("duplicate key '%s'", key)
		}
		values[key] = parseValue(raw)
	}
	return values, nil
}

// parseValue decodes raw as a single JSON value, keeping numbers exact.
func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if _, err := dec.Token(); err != io.EOF {
		return raw
	}
	return v
}

// defaultRecordPath builds <folder>/<prefix>-<uuid>.json.
func defaultRecordPath(folder, prefix string) string {
	name := fmt.Sprintf("%s-%s.json", sanitizeName(prefix), uuid.New().String())
	return path.Join(folder, name)
}

// sanitizeName replaces characters that do not belong in a file name.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// ensureNewline terminates text with exactly the newline it may lack.
func ensureNewline(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// writeLocalFile writes content with a trailing newline, creating parent
// directories.
func writeLocalFile(p, content string) error {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(p, []byte(ensureNewline(content)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}
