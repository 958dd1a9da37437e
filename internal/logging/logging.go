// Package logging provides the small opt-in logger shared by internal
// packages. A Logger with a nil Writer is disabled, so packages can log
// unconditionally and the CLI decides what reaches stderr.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
)

// Level controls how much is written.
type Level int

const (
	LevelQuiet Level = iota
	LevelStandard
	LevelDebug
)

// ParseLevel parses quiet|standard|debug. Empty means standard.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return LevelStandard, nil
	case "quiet":
		return LevelQuiet, nil
	case "debug":
		return LevelDebug, nil
	}
	return LevelStandard, fmt.Errorf("invalid log level %q (expected quiet|standard|debug)", s)
}

func (l Level) String() string {
	switch l {
	case LevelQuiet:
		return "quiet"
	case LevelDebug:
		return "debug"
	}
	return "standard"
}

// Logger writes lines of the form:
//
//	<Prefix> <message>
//
// The prefix is rendered with Style unless Plain is set.
type Logger struct {
	mu     sync.Mutex
	Writer io.Writer
	Level  Level

	Prefix string
	Style  lipgloss.Style
	Plain  bool
}

// New returns a disabled logger with the given prefix and color.
func New(prefix string, color string) *Logger {
	return &Logger{
		Prefix: prefix,
		Style:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)),
		Level:  LevelStandard,
	}
}

// SetWriter enables the logger at the given level.
func (l *Logger) SetWriter(w io.Writer, level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Writer = w
	l.Level = level
}

// Enabled reports whether standard messages are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.Writer != nil && l.Level >= LevelStandard
}

// Logf writes a standard message.
func (l *Logger) Logf(format string, args ...any) {
	l.write(LevelStandard, format, args...)
}

// Debugf writes a message only at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.write(LevelDebug, format, args...)
}

func (l *Logger) write(at Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Writer == nil || l.Level < at {
		return
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = "Log:"
	}
	if !l.Plain {
		prefix = l.Style.Render(prefix)
	}
	fmt.Fprintf(l.Writer, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}
