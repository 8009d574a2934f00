package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devioarts/go-mdns/pkg/log"
)

func createTestCaptureFile(t *testing.T, events []log.Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.mlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}

func TestExportJSONL(t *testing.T) {
	ts := time.Date(2026, 8, 12, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "session-1", Category: log.CategoryBrowse,
			Service: "_http._tcp.", Instance: "Alpha", Browse: &log.BrowseData{Kind: "FOUND"}},
		{Timestamp: ts, SessionID: "session-1", Category: log.CategoryResolve,
			Service: "_http._tcp.", Instance: "Alpha", Resolve: &log.ResolveData{Success: true, Port: 8080, HostCount: 1}},
	}

	path := createTestCaptureFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, outPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed to parse first line: %v", err)
	}
	if first["SessionID"] != "session-1" {
		t.Errorf("SessionID: got %v, want %q", first["SessionID"], "session-1")
	}
}

func TestExportCSV(t *testing.T) {
	ts := time.Date(2026, 8, 12, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "session-1", Category: log.CategoryBrowse,
			Service: "_http._tcp.", Instance: "Alpha", Browse: &log.BrowseData{Kind: "FOUND"}},
		{Timestamp: ts, SessionID: "session-1", Category: log.CategorySession,
			Service: "_http._tcp.", Finish: &log.FinishData{Trigger: "SETTLE", ServicesFound: 1, Elapsed: 400}},
	}

	path := createTestCaptureFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	r := csv.NewReader(bytes.NewReader(readFile(t, outPath)))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}

	// Header + 2 rows
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("header: got %q, want %q", rows[0][0], "timestamp")
	}
	if rows[1][5] != "FOUND" {
		t.Errorf("browse type column: got %q, want %q", rows[1][5], "FOUND")
	}
	if rows[2][5] != "SETTLE" {
		t.Errorf("finish type column: got %q, want %q", rows[2][5], "SETTLE")
	}
	if rows[2][6] != "found=1" {
		t.Errorf("finish detail column: got %q, want %q", rows[2][6], "found=1")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestCaptureFile(t, []log.Event{
		{Timestamp: time.Now(), SessionID: "session-1", Category: log.CategoryBrowse},
	})

	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
