package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleSink_Text(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewConsoleSink(&buf, "text")
	if err != nil {
		t.Fatalf("NewConsoleSink: %v", err)
	}

	events := []Event{
		{Type: EventRunStarted, RunID: "r1"},
		{Type: EventCatalogListed, Repository: "owner/dex", Ref: "main", Entries: 7, Files: 5},
		{Type: EventItemFailed, Bucket: "moves", Locator: "https://x/moves/bad.json"},
		{Type: EventBatchFinished, Bucket: "pokedex", Attempted: 2, Succeeded: 2},
		{Type: EventBatchFinished, Bucket: "moves", Attempted: 3, Succeeded: 2, Failed: 1},
		{Type: EventBatchFinished, Bucket: "abilities"},
		{Type: EventOutputWritten, Bucket: "pokedex", File: "all_pokedex.json", Documents: 2},
		{Type: EventOutputWritten, File: "manifest.json"},
		{Type: EventRunFinished, Attempted: 5, Succeeded: 4, Buckets: 3},
	}
	for _, e := range events {
		if err := s.Write(e); err != nil {
			t.Fatalf("Write(%s): %v", e.Type, err)
		}
	}

	want := strings.Join([]string{
		"Catalog owner/dex@main: 7 entries, 5 files",
		"[OK] pokedex: 2/2 documents",
		"[PARTIAL] moves: 2/3 documents (1 failed)",
		"[EMPTY] abilities: 0/0 documents",
		"Wrote all_pokedex.json (2 documents)",
		"Wrote manifest.json",
		"Done: 4/5 documents across 3 buckets",
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected text output:\n%s\nwant:\n%s", got, want)
	}
}

func TestConsoleSink_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewConsoleSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewConsoleSink: %v", err)
	}
	_ = s.Write(Event{Type: EventRunStarted, RunID: "r1"})
	_ = s.Write(Event{Type: EventItemFailed, Bucket: "moves", Locator: "u", Error: "http 404 Not Found"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if e.Type != EventItemFailed || e.Error != "http 404 Not Found" {
		t.Fatalf("unexpected event %+v", e)
	}
	if strings.Contains(lines[0], "attempted") {
		t.Fatalf("zero fields should be omitted: %s", lines[0])
	}
}

func TestConsoleSink_FlushesBufferedWriter(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	s, err := NewConsoleSink(bw, "text")
	if err != nil {
		t.Fatalf("NewConsoleSink: %v", err)
	}
	if err := s.Write(Event{Type: EventOutputWritten, Bucket: "moves", File: "all_moves.json", Documents: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "all_moves.json") {
		t.Fatalf("expected buffered writer to be flushed, got %q", buf.String())
	}
}

func TestConsoleSink_RejectsUnknownFormat(t *testing.T) {
	if _, err := NewConsoleSink(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
