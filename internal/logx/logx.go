// Package logx provides the fabric's structured, per-agent logging.
//
// When an endpoint or channel is given a Logger, each validation rejection
// at the endpoint (Send and Broadcast) or at a channel's pre-deliver check,
// and each recovered handler panic, emits one line through it, in the form
// "[timestamp] [agent] LEVEL: message", mirroring the teacher's logging
// package. A channel's structural pre-enqueue rejection and channel or
// endpoint start/stop transitions are not logged. Unlike the teacher, this package has no environment-variable
// surface: the fabric recognizes no environment inputs, so debug logging is
// a plain construction-time choice, not something toggled by DEBUG=1.
package logx

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Level is the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger emits structured lines scoped to one agent.
type Logger struct {
	agentID string
	debug   bool
	out     *log.Logger
}

// NewLogger returns a Logger scoped to agentID, writing to stderr.
func NewLogger(agentID string) *Logger {
	return &Logger{
		agentID: agentID,
		out:     log.New(os.Stderr, "", 0),
	}
}

// WithDebug returns a copy of l with debug-level logging enabled or disabled.
func (l *Logger) WithDebug(enabled bool) *Logger {
	clone := *l
	clone.debug = enabled
	return &clone
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	l.out.Printf("[%s] [%s] %s: %s", timestamp, l.agentID, level, fmt.Sprintf(format, args...))
}

// Debug logs at debug level; a no-op unless WithDebug(true) was called.
func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.log(LevelDebug, format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Wrap annotates err with msg, returning nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
