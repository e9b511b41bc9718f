package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Collection is the set of documents gathered for one bucket.
type Collection struct {
	Bucket    string
	Documents []json.RawMessage
}

// Written describes one aggregate file that was persisted.
type Written struct {
	Bucket    string
	File      string
	Documents int
}

// FileName is the deterministic aggregate file name for a bucket.
func FileName(bucket string) string {
	return "all_" + bucket + ".json"
}

// Aggregator serializes each bucket's documents as one JSON array and stores it.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) (*Aggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("aggregator store must not be nil")
	}
	return &Aggregator{store: store}, nil
}

// WriteAll ensures the destination exists, then writes collections one at a
// time in order. The first failure stops the run: a partial output set would
// mislead downstream consumers.
func (a *Aggregator) WriteAll(ctx context.Context, collections []Collection) ([]Written, error) {
	if err := a.store.Ensure(ctx); err != nil {
		return nil, err
	}

	written := make([]Written, 0, len(collections))
	for _, c := range collections {
		data, err := MarshalDocuments(c.Documents)
		if err != nil {
			return written, fmt.Errorf("bucket %s: %w", c.Bucket, err)
		}
		name := FileName(c.Bucket)
		if err := a.store.Write(ctx, name, data); err != nil {
			return written, fmt.Errorf("bucket %s: %w", c.Bucket, err)
		}
		written = append(written, Written{Bucket: c.Bucket, File: name, Documents: len(c.Documents)})
	}
	return written, nil
}

// MarshalDocuments renders docs as a 2-space indented JSON array. Object keys
// keep the order they had in each source document; nil renders as [].
func MarshalDocuments(docs []json.RawMessage) ([]byte, error) {
	if docs == nil {
		docs = []json.RawMessage{}
	}
	return MarshalIndent(docs)
}

// MarshalIndent encodes v with 2-space indentation, without HTML escaping,
// and with a trailing newline.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON stores v as indented JSON under name.
func WriteJSON(ctx context.Context, store Store, name string, v any) error {
	data, err := MarshalIndent(v)
	if err != nil {
		return err
	}
	return store.Write(ctx, name, data)
}
