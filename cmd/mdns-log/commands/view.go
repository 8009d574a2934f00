// Package commands implements the mdns-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/devioarts/go-mdns/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category *log.Category
	Instance string
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] CATEGORY Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	sessionID := shortenSessionID(event.SessionID)

	var typeLabel string
	switch {
	case event.Browse != nil:
		typeLabel = event.Browse.Kind
	case event.Resolve != nil:
		typeLabel = "Resolve"
	case event.Publish != nil:
		typeLabel = "Publish"
	case event.Finish != nil:
		typeLabel = event.Finish.Trigger
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [session:%s] %-7s %s\n", ts, sessionID, event.Category.String(), typeLabel)

	if event.Service != "" {
		fmt.Fprintf(w, "  Service: %s\n", event.Service)
	}
	if event.Instance != "" {
		fmt.Fprintf(w, "  Instance: %s\n", event.Instance)
	}

	switch {
	case event.Resolve != nil:
		formatResolveDetails(w, event.Resolve)
	case event.Publish != nil:
		formatPublishDetails(w, event.Publish)
	case event.Finish != nil:
		formatFinishDetails(w, event.Finish)
	}

	if event.Error != nil {
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatResolveDetails writes resolve-specific details.
func formatResolveDetails(w io.Writer, r *log.ResolveData) {
	if r.Success {
		fmt.Fprintf(w, "  Port: %d  Hosts: %d\n", r.Port, r.HostCount)
	} else {
		fmt.Fprintln(w, "  Failed")
	}
	if r.Discarded {
		fmt.Fprintln(w, "  Discarded")
	}
}

// formatPublishDetails writes publish-specific details.
func formatPublishDetails(w io.Writer, p *log.PublishData) {
	if p.Publishing {
		fmt.Fprintf(w, "  Port: %d\n", p.Port)
		if p.FinalName != "" {
			fmt.Fprintf(w, "  Advertised as: %s\n", p.FinalName)
		}
	} else {
		fmt.Fprintln(w, "  Stopped")
	}
}

// formatFinishDetails writes session finish details.
func formatFinishDetails(w io.Writer, f *log.FinishData) {
	fmt.Fprintf(w, "  Found: %d  Elapsed: %dms\n", f.ServicesFound, f.Elapsed)
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "browse":
		return log.CategoryBrowse, nil
	case "resolve":
		return log.CategoryResolve, nil
	case "publish":
		return log.CategoryPublish, nil
	case "session":
		return log.CategorySession, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be browse, resolve, publish, or session)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Apply filter
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}
		if filter.Instance != "" && event.Instance != filter.Instance {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
