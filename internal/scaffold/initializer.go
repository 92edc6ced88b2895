package scaffold

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/evaldb/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ResultsDir is the records folder created next to a fresh evaldb.yml.
const ResultsDir = "results"

// Initialize writes evaldb.yml into dir and creates the results folder.
// If force is true an existing evaldb.yml is replaced; records already in
// the results folder are never touched.
func Initialize(dir string, force bool) error {
	configPath := filepath.Join(dir, config.DefaultPath)

	if force {
		if err := handleForce(configPath); err != nil {
			return err
		}
	}

	content, err := templatesFS.ReadFile("templates/evaldb.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read evaldb.yml template: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, ResultsDir), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ResultsDir, err)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.DefaultPath, err)
	}

	// The template must load with the same rules every command uses
	if _, err := config.Load(configPath); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}

	return nil
}

func handleForce(configPath string) error {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}
	if err := os.Remove(configPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
	}
	return nil
}

// PrintSuccess prints the created files and next steps.
func PrintSuccess(w io.Writer) {
	fmt.Fprintln(w, "\n✅ Successfully initialized evaldb project!")
	fmt.Fprintln(w, "\nCreated:")
	fmt.Fprintf(w, "  ✓ %s\n", config.DefaultPath)
	fmt.Fprintf(w, "  ✓ %s/\n", ResultsDir)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Choose a backend in %s and set its token variable (or add it to .env)\n", config.DefaultPath)
	fmt.Fprintln(w, "  2. Record a run: evaldb record --experiment baseline --model lr=0.1 --result acc=0.9 --push")
	fmt.Fprintln(w, "  3. Aggregate runs: evaldb table")
}
