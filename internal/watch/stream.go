// Package watch follows writes to a store: streaming Redis file events and
// polling for a file to appear.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dyluth/evaldb/pkg/store"
)

// OutputFormat specifies how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault writes one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes line-delimited JSON
	OutputFormatJSON OutputFormat = "json"
)

// EventSource is satisfied by *store.Subscription.
type EventSource interface {
	Events() <-chan *store.FileEvent
	Errors() <-chan error
}

// Stream writes every event from src to w until ctx is cancelled or the
// source closes. Decode errors are logged and skipped.
func Stream(ctx context.Context, src EventSource, w io.Writer, format OutputFormat) error {
	events := src.Events()
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := FormatEvent(w, event, format); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				// Keep draining events until they close too
				errs = nil
				continue
			}
			log.Printf("[Watch] Skipping event: %v", err)
		}
	}
}

// FormatEvent writes a single event.
func FormatEvent(w io.Writer, event *store.FileEvent, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	action := "updated"
	if event.Created {
		action = "created"
	}
	ts := time.UnixMilli(event.UpdatedAtMs).Format("15:04:05")
	_, err := fmt.Fprintf(w, "[%s] %s %s (v%d) %s\n", ts, action, event.Path, event.Version, event.Message)
	return err
}
