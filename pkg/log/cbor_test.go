package log

import (
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 12, 9, 41, 7, 123456789, time.UTC)
	original := Event{
		Timestamp: ts,
		SessionID: "abc12345-def6-7890-abcd-ef1234567890",
		Category:  CategoryBrowse,
		Service:   "_http._tcp.",
		Instance:  "My Server",
		Browse:    &BrowseData{Kind: "FOUND"},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.SessionID != original.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, original.SessionID)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.Service != original.Service {
		t.Errorf("Service: got %q, want %q", decoded.Service, original.Service)
	}
	if decoded.Instance != original.Instance {
		t.Errorf("Instance: got %q, want %q", decoded.Instance, original.Instance)
	}
	if decoded.Browse == nil {
		t.Fatal("Browse is nil")
	}
	if decoded.Browse.Kind != "FOUND" {
		t.Errorf("Browse.Kind: got %q, want %q", decoded.Browse.Kind, "FOUND")
	}
}

func TestResolveEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		SessionID: "session-1",
		Category:  CategoryResolve,
		Service:   "_airplay._tcp.",
		Instance:  "Living Room TV",
		Resolve: &ResolveData{
			Success:   true,
			Port:      7000,
			HostCount: 2,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Resolve == nil {
		t.Fatal("Resolve is nil")
	}
	if !decoded.Resolve.Success {
		t.Error("Resolve.Success: got false, want true")
	}
	if decoded.Resolve.Port != 7000 {
		t.Errorf("Resolve.Port: got %d, want 7000", decoded.Resolve.Port)
	}
	if decoded.Resolve.HostCount != 2 {
		t.Errorf("Resolve.HostCount: got %d, want 2", decoded.Resolve.HostCount)
	}
	if decoded.Resolve.Discarded {
		t.Error("Resolve.Discarded: got true, want false")
	}
}

func TestFinishEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		SessionID: "session-2",
		Category:  CategorySession,
		Finish: &FinishData{
			Trigger:       "SETTLE",
			ServicesFound: 3,
			Elapsed:       412,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Finish == nil {
		t.Fatal("Finish is nil")
	}
	if decoded.Finish.Trigger != "SETTLE" {
		t.Errorf("Finish.Trigger: got %q, want %q", decoded.Finish.Trigger, "SETTLE")
	}
	if decoded.Finish.ServicesFound != 3 {
		t.Errorf("Finish.ServicesFound: got %d, want 3", decoded.Finish.ServicesFound)
	}
	if decoded.Finish.Elapsed != 412 {
		t.Errorf("Finish.Elapsed: got %d, want 412", decoded.Finish.Elapsed)
	}
}

func TestOmittedPayloadsStayNil(t *testing.T) {
	data, err := EncodeEvent(Event{
		Timestamp: time.Now(),
		SessionID: "session-3",
		Category:  CategoryPublish,
		Publish:   &PublishData{Publishing: true, Port: 8080, FinalName: "My Server (2)"},
	})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Browse != nil || decoded.Resolve != nil || decoded.Finish != nil || decoded.Error != nil {
		t.Error("absent payloads should decode to nil")
	}
	if decoded.Publish == nil {
		t.Fatal("Publish is nil")
	}
	if decoded.Publish.FinalName != "My Server (2)" {
		t.Errorf("Publish.FinalName: got %q, want %q", decoded.Publish.FinalName, "My Server (2)")
	}
}
