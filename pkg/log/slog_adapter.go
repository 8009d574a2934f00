package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger.
// Useful for development when you want to see discovery events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}

	if event.Service != "" {
		attrs = append(attrs, slog.String("service", event.Service))
	}
	if event.Instance != "" {
		attrs = append(attrs, slog.String("instance", event.Instance))
	}

	switch {
	case event.Browse != nil:
		attrs = append(attrs, slog.String("kind", event.Browse.Kind))
	case event.Resolve != nil:
		attrs = append(attrs,
			slog.Bool("success", event.Resolve.Success),
			slog.Int("port", event.Resolve.Port),
			slog.Int("hosts", event.Resolve.HostCount),
		)
		if event.Resolve.Discarded {
			attrs = append(attrs, slog.Bool("discarded", true))
		}
	case event.Publish != nil:
		attrs = append(attrs,
			slog.Bool("publishing", event.Publish.Publishing),
		)
		if event.Publish.FinalName != "" {
			attrs = append(attrs, slog.String("final_name", event.Publish.FinalName))
		}
	case event.Finish != nil:
		attrs = append(attrs,
			slog.String("trigger", event.Finish.Trigger),
			slog.Int("services_found", event.Finish.ServicesFound),
			slog.Int64("elapsed_ms", event.Finish.Elapsed),
		)
	}

	if event.Error != nil {
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "mdns event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
