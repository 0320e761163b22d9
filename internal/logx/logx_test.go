package logx

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestWrapNilError(t *testing.T) {
	if err := Wrap(nil, "context"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapAnnotatesError(t *testing.T) {
	base := errString("boom")
	err := Wrap(base, "failed to start channel")
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if got := err.Error(); got != "failed to start channel: boom" {
		t.Fatalf("unexpected message: %s", got)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestLoggerDebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("agent-a")
	l.out = log.New(&buf, "", 0)
	l.Debug("unseen %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no debug output by default, got %q", buf.String())
	}
	l.WithDebug(true).Debug("seen %d", 1)
	if !strings.Contains(buf.String(), "DEBUG: seen 1") {
		t.Fatalf("expected debug output once enabled, got %q", buf.String())
	}
}
