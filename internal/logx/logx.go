// Package logx writes prefixed diagnostic lines to a writer (stderr by default)
// so structured output on stdout stays clean.
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	warn    *color.Color
	err     *color.Color
}

// New returns a Logger writing to w. A nil w writes to os.Stderr.
func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	warn := color.New(color.FgYellow)
	errc := color.New(color.FgRed, color.Bold)
	// Only colorize when writing to the process stderr; tests and files get plain text.
	if w != os.Stderr {
		warn.DisableColor()
		errc.DisableColor()
	}
	return &Logger{w: w, verbose: verbose, warn: warn, err: errc}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, false)
}

func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return l.w
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.warn.Fprint(l.w, "[warn] ")
	_, _ = fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.err.Fprint(l.w, "Error: ")
	_, _ = fmt.Fprintf(l.w, format+"\n", args...)
}

// Verbosef writes only when verbose logging is enabled.
func (l *Logger) Verbosef(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, "[verbose] "+format+"\n", args...)
}
