package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Document is one fetched JSON document. It is kept as raw bytes so the key
// order of the source is preserved when re-serialized.
type Document = json.RawMessage

// Retriever performs a single retrieval-and-parse attempt for one locator.
type Retriever interface {
	Retrieve(ctx context.Context, locator string) (Document, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, locator string) (Document, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, locator string) (Document, error) {
	return f(ctx, locator)
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Locator    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ParseError is returned when the body is not well-formed JSON.
type ParseError struct {
	Locator string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed json: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrEmptyBody is the ParseError cause for a 2xx response without content.
var ErrEmptyBody = errors.New("empty body")

// HTTPRetriever fetches locators with plain GET requests.
type HTTPRetriever struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPRetriever returns a retriever using client (http.DefaultClient if nil).
// A positive timeout bounds each attempt; zero leaves it to the client.
func NewHTTPRetriever(client *http.Client, timeout time.Duration) *HTTPRetriever {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRetriever{client: client, timeout: timeout}
}

func (r *HTTPRetriever) Retrieve(ctx context.Context, locator string) (Document, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Retrieve: nil context")
	}
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("Retrieve: nil HTTPRetriever (use NewHTTPRetriever)")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Locator: locator, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Parse(locator, body)
}

// Parse validates body as a single JSON value and returns it as a Document.
func Parse(locator string, body []byte) (Document, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &ParseError{Locator: locator, Err: ErrEmptyBody}
	}
	if !json.Valid(trimmed) {
		// Decode once more to surface a descriptive syntax error.
		var v any
		err := json.Unmarshal(trimmed, &v)
		if err == nil {
			err = errors.New("invalid json")
		}
		return nil, &ParseError{Locator: locator, Err: err}
	}
	return Document(trimmed), nil
}
