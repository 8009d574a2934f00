// Package log provides structured event capture for discovery and
// advertisement runs.
//
// This package defines the Logger interface and Event types for
// recording what a discovery session observed: browse events, resolve
// attempts, publications, and how a session finished. It is separate
// from operational logging (slog) - event capture produces a complete
// machine-readable trace for debugging timing-sensitive behavior on a
// shared multicast medium.
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log events to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: write to a binary file
//	logger, _ := log.NewFileLogger("/var/log/mdns/discover.mlog")
//
//	// Both at once
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// Capture files use CBOR encoding; Reader streams them back with
// optional filtering.
package log
