package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Infof("hello %d", 1)
	l.Warnf("careful %s", "now")
	l.Errorf("broken")
	l.Verbosef("hidden")

	got := buf.String()
	for _, want := range []string{"hello 1\n", "[warn] careful now\n", "Error: broken\n"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output, got %q", want, got)
		}
	}
	if strings.Contains(got, "hidden") {
		t.Fatalf("verbose line written while verbose disabled: %q", got)
	}
}

func TestLogger_VerboseEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)
	l.Verbosef("GET %s", "/x")
	if got := buf.String(); got != "[verbose] GET /x\n" {
		t.Fatalf("unexpected output: %q", got)
	}
	if !l.Verbose() {
		t.Fatalf("expected Verbose() to be true")
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
	l.Verbosef("x")
	if l.Verbose() {
		t.Fatalf("nil logger should not be verbose")
	}
	if l.Writer() == nil {
		t.Fatalf("nil logger should return a discard writer")
	}
}
