// Package logx sets up the service log: a size-rotated app.log duplicated to
// stderr, plus component-tagged key=value helpers.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FileName   = "app.log"
	MaxSizeMB  = 5
	MaxBackups = 5
)

// Logger wraps a *log.Logger with level helpers. The zero value discards.
type Logger struct {
	std   *log.Logger
	debug bool
}

// New creates a logger writing to <dir>/app.log with rotation at 5 MiB,
// keeping 5 backups. When stderr is non-nil every record is duplicated to it.
// The returned closer releases the log file.
func New(dir string, debug bool, stderr io.Writer) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
	}

	var out io.Writer = rotator
	if stderr != nil {
		out = io.MultiWriter(rotator, stderr)
	}
	return NewWriter(out, debug), rotator, nil
}

// NewWriter builds a logger over an arbitrary writer.
func NewWriter(w io.Writer, debug bool) *Logger {
	return &Logger{
		std:   log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		debug: debug,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, false)
}

// Std exposes the underlying logger.
func (l *Logger) Std() *log.Logger {
	if l == nil || l.std == nil {
		return log.New(io.Discard, "", 0)
	}
	return l.std
}

// DebugEnabled reports whether debug lines are emitted.
func (l *Logger) DebugEnabled() bool {
	return l != nil && l.debug
}

// Printf writes an unlevelled line.
func (l *Logger) Printf(format string, v ...any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Printf(format, v...)
}

func (l *Logger) Info(component, msg string, kv ...any) {
	l.emit("INFO", component, msg, kv)
}

func (l *Logger) Warn(component, msg string, kv ...any) {
	l.emit("WARN", component, msg, kv)
}

func (l *Logger) Error(component, msg string, kv ...any) {
	l.emit("ERROR", component, msg, kv)
}

func (l *Logger) Debug(component, msg string, kv ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.emit("DEBUG", component, msg, kv)
}

func (l *Logger) emit(level, component, msg string, kv []any) {
	if l == nil || l.std == nil {
		return
	}
	l.std.Printf("[%s] %s %s%s", strings.ToUpper(component), level, msg, formatFields(kv...))
}

func formatFields(kv ...any) string {
	if len(kv) == 0 {
		return ""
	}
	if len(kv)%2 != 0 {
		kv = append(kv, "(missing)")
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(toString(kv[i])))
		b.WriteString("=")
		b.WriteString(toString(kv[i+1]))
	}
	return b.String()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return flatten(t.Error())
	default:
		return flatten(fmt.Sprintf("%v", t))
	}
}

func flatten(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), "\n", " "), "\t", " "))
}
