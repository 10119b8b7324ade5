// Package logging provides the leveled console/file logger used by every
// command. It keeps a small printf-style surface (Info, Success, Warn, Error,
// Debug) over a logrus core so output can be switched to JSON and scoped
// with fields.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/backmassage/codecbench/internal/config"
	"github.com/backmassage/codecbench/internal/term"
)

// labelKey carries display levels logrus has no native level for (SUCCESS).
const labelKey = "label"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	core    *logrus.Logger
	entry   *logrus.Entry
	file    *os.File // Owned by the root logger only.
	verbose bool
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile.
// Call Close() when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	return newLogger(cfg, os.Stdout, os.Stderr, term.Enabled())
}

// NewWithWriters builds an uncolored logger writing to stdout and stderr
// instead of the process streams.
func NewWithWriters(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	return newLogger(cfg, stdout, stderr, false)
}

func newLogger(cfg *config.Config, stdout, stderr io.Writer, useColor bool) (*Logger, error) {
	core := logrus.New()
	core.SetOutput(io.Discard)
	core.SetLevel(logrus.DebugLevel)

	var console logrus.Formatter = &textFormatter{color: useColor}
	if cfg.LogFormat == config.LogJSON {
		console = &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	}
	core.AddHook(&writerHook{formatter: console, out: stdout, errOut: stderr})

	l := &Logger{core: core, entry: logrus.NewEntry(core), verbose: cfg.Verbose}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		core.AddHook(&writerHook{formatter: &textFormatter{}, out: f, errOut: f})
		l.file = f
	}
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Verbose reports whether debug output is enabled.
func (l *Logger) Verbose() bool { return l.verbose }

// WithField returns a child logger that stamps key=value on every line. The
// child shares the parent's outputs; only the parent closes them.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{core: l.core, entry: l.entry.WithField(key, value), verbose: l.verbose}
}

// WithCase scopes the logger to one benchmark case.
func (l *Logger) WithCase(name string) *Logger {
	return l.WithField("case", name)
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.entry.WithField(labelKey, "SUCCESS").Infof(format, args...)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Error logs at ERROR level (red), also to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.entry.Debugf(format, args...)
}

// --- Output plumbing ---

// writerHook formats every entry and writes it to out, or to errOut for
// error and above.
type writerHook struct {
	mu        sync.Mutex
	formatter logrus.Formatter
	out       io.Writer
	errOut    io.Writer
}

func (h *writerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	w := h.out
	if e.Level <= logrus.ErrorLevel {
		w = h.errOut
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = w.Write(b)
	return err
}

// textFormatter renders "2006-01-02 15:04:05 [LEVEL] text key=value".
type textFormatter struct {
	color bool
}

var levelColors = map[string]*color.Color{
	"INFO":    term.Blue,
	"SUCCESS": term.Green,
	"WARN":    term.Yellow,
	"ERROR":   term.Red,
	"FATAL":   term.Red,
	"PANIC":   term.Red,
	"DEBUG":   term.Cyan,
}

func (f *textFormatter) Format(e *logrus.Entry) ([]byte, error) {
	label := levelLabel(e)
	tag := "[" + label + "]"
	if c, ok := levelColors[label]; ok && f.color {
		tag = c.Sprint(tag)
	}

	var b bytes.Buffer
	b.WriteString(e.Time.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != labelKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv := fmt.Sprintf(" %s=%v", k, e.Data[k])
		if f.color {
			kv = term.Faint.Sprint(kv)
		}
		b.WriteString(kv)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelLabel(e *logrus.Entry) string {
	if s, ok := e.Data[labelKey].(string); ok {
		return s
	}
	switch e.Level {
	case logrus.WarnLevel:
		return "WARN"
	case logrus.DebugLevel, logrus.TraceLevel:
		return "DEBUG"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.FatalLevel:
		return "FATAL"
	case logrus.PanicLevel:
		return "PANIC"
	}
	return "INFO"
}
