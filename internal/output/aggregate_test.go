package output

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// failingStore fails every write whose name appears in failOn.
type failingStore struct {
	ensureErr error
	failOn    map[string]bool
	written   []string
}

func (s *failingStore) Ensure(ctx context.Context) error { return s.ensureErr }
func (s *failingStore) Location() string                 { return "failing" }
func (s *failingStore) Close() error                     { return nil }

func (s *failingStore) Write(ctx context.Context, name string, data []byte) error {
	if s.failOn[name] {
		return errors.New("disk full")
	}
	s.written = append(s.written, name)
	return nil
}

func TestFileName(t *testing.T) {
	if got := FileName("pokedex"); got != "all_pokedex.json" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestMarshalDocuments(t *testing.T) {
	tests := []struct {
		name string
		docs []json.RawMessage
		want string
	}{
		{name: "nil renders empty array", docs: nil, want: "[]\n"},
		{name: "empty renders empty array", docs: []json.RawMessage{}, want: "[]\n"},
		{
			name: "documents are indented and keep key order",
			docs: []json.RawMessage{json.RawMessage(`{"b":1,"a":"x<y"}`), json.RawMessage(` [2] `)},
			want: "[\n  {\n    \"b\": 1,\n    \"a\": \"x<y\"\n  },\n  [\n    2\n  ]\n]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalDocuments(tt.docs)
			if err != nil {
				t.Fatalf("MarshalDocuments: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestAggregator_WriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	agg, err := NewAggregator(NewDirStore(dir))
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	written, err := agg.WriteAll(context.Background(), []Collection{
		{Bucket: "pokedex", Documents: []json.RawMessage{json.RawMessage(`{"id":1}`), json.RawMessage(`{"id":2}`)}},
		{Bucket: "moves"},
	})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(written) != 2 || written[0].File != "all_pokedex.json" || written[0].Documents != 2 || written[1].Documents != 0 {
		t.Fatalf("unexpected written summary %+v", written)
	}

	b, err := os.ReadFile(filepath.Join(dir, "all_pokedex.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var docs []map[string]int
	if err := json.Unmarshal(b, &docs); err != nil {
		t.Fatalf("aggregate is not a JSON array: %v", err)
	}
	if len(docs) != 2 || docs[0]["id"] != 1 || docs[1]["id"] != 2 {
		t.Fatalf("unexpected documents %v", docs)
	}

	b, err = os.ReadFile(filepath.Join(dir, "all_moves.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("expected empty array for empty bucket, got %q", b)
	}
}

func TestAggregator_StopsAtFirstFailure(t *testing.T) {
	store := &failingStore{failOn: map[string]bool{"all_moves.json": true}}
	agg, err := NewAggregator(store)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	written, err := agg.WriteAll(context.Background(), []Collection{
		{Bucket: "pokedex"}, {Bucket: "moves"}, {Bucket: "abilities"},
	})
	if err == nil || !strings.Contains(err.Error(), "bucket moves") {
		t.Fatalf("expected moves failure, got %v", err)
	}
	if len(written) != 1 || written[0].Bucket != "pokedex" {
		t.Fatalf("unexpected written summary %+v", written)
	}
	if len(store.written) != 1 {
		t.Fatalf("abilities should not be written after failure, wrote %v", store.written)
	}
}

func TestAggregator_EnsureFailure(t *testing.T) {
	store := &failingStore{ensureErr: errors.New("read-only")}
	agg, _ := NewAggregator(store)
	if _, err := agg.WriteAll(context.Background(), []Collection{{Bucket: "pokedex"}}); err == nil {
		t.Fatalf("expected ensure failure to surface")
	}
	if len(store.written) != 0 {
		t.Fatalf("nothing should be written when ensure fails")
	}
}

func TestNewAggregator_NilStore(t *testing.T) {
	if _, err := NewAggregator(nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{RunID: "r1", Buckets: []ManifestBucket{{Name: "pokedex", Failed: []string{}}}}
	if err := WriteJSON(context.Background(), NewDirStore(dir), ManifestName, m); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got Manifest
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.RunID != "r1" || len(got.Buckets) != 1 || got.Buckets[0].Failed == nil {
		t.Fatalf("unexpected manifest %+v", got)
	}
}
