package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink prints events for humans ("text") or as one JSON object per line ("ndjson").
type ConsoleSink struct {
	writer io.Writer
	format string
	mu     sync.Mutex

	ok      *color.Color
	partial *color.Color
	empty   *color.Color
}

func NewConsoleSink(w io.Writer, format string) (*ConsoleSink, error) {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported console format: %s", format)
	}
	s := &ConsoleSink{
		writer:  w,
		format:  format,
		ok:      color.New(color.FgGreen, color.Bold),
		partial: color.New(color.FgYellow, color.Bold),
		empty:   color.New(color.Faint),
	}
	if w != os.Stdout {
		s.ok.DisableColor()
		s.partial.DisableColor()
		s.empty.DisableColor()
	}
	return s, nil
}

func (s *ConsoleSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "ndjson" {
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flush(s.writer)
	}

	var err error
	switch e.Type {
	case EventCatalogListed:
		_, err = fmt.Fprintf(s.writer, "Catalog %s@%s: %d entries, %d files\n", e.Repository, e.Ref, e.Entries, e.Files)
	case EventBatchFinished:
		err = s.writeBatchLocked(e)
	case EventOutputWritten:
		if e.Bucket == "" {
			_, err = fmt.Fprintf(s.writer, "Wrote %s\n", e.File)
		} else {
			_, err = fmt.Fprintf(s.writer, "Wrote %s (%d documents)\n", e.File, e.Documents)
		}
	case EventRunFinished:
		_, err = fmt.Fprintf(s.writer, "Done: %d/%d documents across %d buckets\n", e.Succeeded, e.Attempted, e.Buckets)
	default:
		// run.started and item.failed carry nothing a human needs on stdout;
		// failures are already logged as warnings on stderr.
		return nil
	}
	if err != nil {
		return err
	}
	return flush(s.writer)
}

func (s *ConsoleSink) writeBatchLocked(e Event) error {
	var label *color.Color
	var status string
	switch {
	case e.Attempted == 0:
		label, status = s.empty, "EMPTY"
	case e.Failed > 0:
		label, status = s.partial, "PARTIAL"
	default:
		label, status = s.ok, "OK"
	}
	if _, err := label.Fprintf(s.writer, "[%s]", status); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.writer, " %s: %d/%d documents", e.Bucket, e.Succeeded, e.Attempted)
	if err != nil {
		return err
	}
	if e.Failed > 0 {
		if _, err := fmt.Fprintf(s.writer, " (%d failed)", e.Failed); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(s.writer)
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flush(s.writer)
}

// flush drains buffered writers such as *bufio.Writer so events appear as they
// happen.
func flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
