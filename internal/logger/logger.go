// Package logger provides the levelled console logger used by the CLI, the
// store and the log watcher. Parsers never log.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/san-kum/damaskio/internal/damask"
)

const (
	levelTrace int = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

var levels = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

var levelColors = map[string]*color.Color{
	"TRACE": color.New(color.FgHiBlack),
	"DEBUG": color.New(color.FgCyan),
	"INFO":  color.New(color.FgBlue),
	"WARN":  color.New(color.FgYellow),
	"ERROR": color.New(color.FgRed),
}

// Logger is what the store and the watcher log through.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ConsoleLogger writes "[HH:MM:SS] [LEVEL] message" lines. It is safe for
// concurrent use.
type ConsoleLogger struct {
	writer   io.Writer
	level    string
	mutex    sync.Mutex
	colorize bool
	now      func() time.Time
}

// New returns a ConsoleLogger filtering below level. Unknown or empty levels
// mean "info". A nil writer discards everything.
func New(w io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:   w,
		level:    NormalizeLevel(level),
		colorize: isTerminal(w),
		now:      time.Now,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NormalizeLevel lowercases level and falls back to "info".
func NormalizeLevel(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	if _, ok := levels[l]; ok {
		return l
	}
	return "info"
}

// Level is the active filter level.
func (l *ConsoleLogger) Level() string {
	return l.level
}

func (l *ConsoleLogger) Enabled(level string) bool {
	return levels[NormalizeLevel(level)] >= levels[l.level]
}

func (l *ConsoleLogger) Tracef(format string, args ...any) { l.logf("TRACE", format, args...) }
func (l *ConsoleLogger) Debugf(format string, args ...any) { l.logf("DEBUG", format, args...) }
func (l *ConsoleLogger) Infof(format string, args ...any)  { l.logf("INFO", format, args...) }
func (l *ConsoleLogger) Warnf(format string, args ...any)  { l.logf("WARN", format, args...) }
func (l *ConsoleLogger) Errorf(format string, args ...any) { l.logf("ERROR", format, args...) }

// Messages logs solver diagnostics one per line at warn level.
func (l *ConsoleLogger) Messages(kind string, msgs []damask.Message) {
	for _, m := range msgs {
		l.Warnf("%s %d: %s", kind, m.Code, m.Message)
	}
}

func (l *ConsoleLogger) logf(level, format string, args ...any) {
	if l.writer == nil || !l.Enabled(level) {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	tag := level
	if l.colorize {
		tag = levelColors[level].Sprint(level)
	}
	fmt.Fprintf(l.writer, "[%s] [%s] %s\n", l.now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debugf(string, ...any) {}
func (Nop) Infof(string, ...any)  {}
func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}
