package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPRetriever_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pokedex/001.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "  {\"name\":\"bulbasaur\",\"id\":1}\n")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := NewHTTPRetriever(server.Client(), 0)
	doc, err := r.Retrieve(context.Background(), server.URL+"/pokedex/001.json")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got := string(doc); got != `{"name":"bulbasaur","id":1}` {
		t.Fatalf("unexpected document %q", got)
	}
}

func TestHTTPRetriever_Failures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.json", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "bulba`)
	})
	mux.HandleFunc("/empty.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := NewHTTPRetriever(server.Client(), 0)

	t.Run("non-OK status", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), server.URL+"/missing.json")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", se.StatusCode)
		}
		if !strings.Contains(se.Error(), "404") {
			t.Fatalf("unexpected message %q", se.Error())
		}
	})

	t.Run("malformed content", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), server.URL+"/broken.json")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), server.URL+"/empty.json")
		if !errors.Is(err, ErrEmptyBody) {
			t.Fatalf("expected ErrEmptyBody, got %v", err)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), "http://127.0.0.1:0/nope.json")
		if err == nil {
			t.Fatalf("expected transport error")
		}
	})

	t.Run("bad locator", func(t *testing.T) {
		_, err := r.Retrieve(context.Background(), "://bad")
		if err == nil {
			t.Fatalf("expected error for invalid locator")
		}
	})
}

func TestHTTPRetriever_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	r := NewHTTPRetriever(server.Client(), 20*time.Millisecond)
	_, err := r.Retrieve(context.Background(), server.URL+"/slow.json")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPRetriever_NilSafety(t *testing.T) {
	var r *HTTPRetriever
	if _, err := r.Retrieve(context.Background(), "http://x"); err == nil {
		t.Fatalf("expected error for nil retriever")
	}
	var nilCtx context.Context
	if _, err := NewHTTPRetriever(nil, 0).Retrieve(nilCtx, "http://x"); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestRetrieverFunc(t *testing.T) {
	var got string
	f := RetrieverFunc(func(ctx context.Context, locator string) (Document, error) {
		got = locator
		return Document(`[]`), nil
	})
	doc, err := f.Retrieve(context.Background(), "loc")
	if err != nil || string(doc) != "[]" || got != "loc" {
		t.Fatalf("unexpected result doc=%q err=%v locator=%q", doc, err, got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "object", body: `{"a":1}`},
		{name: "array", body: `[1,2]`},
		{name: "padded", body: "\n {\"a\":1} \n"},
		{name: "empty", body: "  ", wantErr: true},
		{name: "truncated", body: `{"a":`, wantErr: true},
		{name: "trailing garbage", body: `{"a":1} x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("loc", []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) err=%v wantErr=%v", tt.body, err, tt.wantErr)
			}
		})
	}
}
