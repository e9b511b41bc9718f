package output

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// Store persists named output files.
type Store interface {
	// Ensure prepares the destination (e.g. creates the directory). It is idempotent.
	Ensure(ctx context.Context) error
	Write(ctx context.Context, name string, data []byte) error
	Location() string
	Close() error
}

// OpenStore returns a DirStore for a plain filesystem path and a BlobStore for
// a bucket URL such as file:///tmp/out, mem://, s3://bucket or gs://bucket.
func OpenStore(ctx context.Context, location string) (Store, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("output location required")
	}
	if !strings.Contains(location, "://") {
		return NewDirStore(location), nil
	}
	return OpenBlobStore(ctx, location)
}

// DirStore writes files into a local directory.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) Location() string {
	return s.dir
}

func (s *DirStore) Ensure(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Write replaces name atomically: readers never see a half-written file.
func (s *DirStore) Write(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func (s *DirStore) Close() error { return nil }

// BlobStore writes objects into a gocloud.dev blob bucket.
type BlobStore struct {
	url    string
	bucket *blob.Bucket
}

func OpenBlobStore(ctx context.Context, rawURL string) (*BlobStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid output url %q: %w", rawURL, err)
	}
	// fileblob refuses to open a missing directory unless asked to create it.
	if u.Scheme == "file" {
		q := u.Query()
		if q.Get("create_dir") == "" {
			q.Set("create_dir", "true")
			u.RawQuery = q.Encode()
		}
	}
	bkt, err := blob.OpenBucket(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("open output bucket %q: %w", rawURL, err)
	}
	return &BlobStore{url: rawURL, bucket: bkt}, nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bkt *blob.Bucket, location string) *BlobStore {
	return &BlobStore{url: location, bucket: bkt}
}

func (s *BlobStore) Location() string {
	return s.url
}

// Ensure checks that the bucket is reachable; object stores have no directories to create.
func (s *BlobStore) Ensure(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("output bucket %q: %w", s.url, err)
	}
	if !ok {
		return fmt.Errorf("output bucket %q is not accessible", s.url)
	}
	return nil
}

func (s *BlobStore) Write(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	opts := &blob.WriterOptions{ContentType: contentTypeFor(name)}
	if err := s.bucket.WriteAll(ctx, name, data, opts); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", name, s.url, err)
	}
	return nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid output file name %q", name)
	}
	return nil
}

func contentTypeFor(name string) string {
	if strings.HasSuffix(name, ".json") {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
