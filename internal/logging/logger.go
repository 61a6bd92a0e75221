package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/cristianoliveira/chat-intray/internal/colors"
)

// Logger is the structured logging interface shared by every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a logger that adds the key/value pairs to every entry,
	// replacing earlier values for the same keys.
	With(args ...any) Logger
	// Shutdown closes the log file. Derived loggers share it.
	Shutdown() error
}

// sink is the open log file shared by a logger and everything derived
// from it through With.
type sink struct {
	mu     sync.Mutex
	out    *clog.Logger
	file   *os.File
	path   string
	closed bool
}

func (s *sink) write(level clog.Level, msg string, kv []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.out.Log(level, msg, kv...)
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

type fileLogger struct {
	sink     *sink
	redactor *redactor
	fields   []any
}

// Init opens a JSON log file for cfg, or returns a no-op logger when
// logging is disabled. Old files beyond cfg.MaxFiles are removed first.
func Init(cfg Config) (Logger, error) {
	if !cfg.Enabled {
		return noopLogger{}, nil
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = LogDir(); err != nil {
			return nil, fmt.Errorf("failed to determine log directory: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := rotate(dir, cfg.MaxFiles); err != nil {
		colors.Debug(fmt.Sprintf("log rotation failed: %v", err))
	}

	path := filepath.Join(dir, fileName(cfg, time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	out := clog.NewWithOptions(f, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		Level:           parseLevel(cfg.Level),
		Formatter:       clog.JSONFormatter,
	})
	return &fileLogger{
		sink:     &sink{out: out, file: f, path: path},
		redactor: newRedactor(cfg.Secrets...),
		fields:   []any{"pid", cfg.PID, "command", cfg.Command},
	}, nil
}

// fileName is chat-intray-<command>-<timestamp>-<pid>.log.
func fileName(cfg Config, now time.Time) string {
	command := strings.NewReplacer(" ", "_", string(os.PathSeparator), "_").Replace(cfg.Command)
	if command == "" {
		command = "chat-intray"
	}
	return fmt.Sprintf("%s%s-%s-%d.log", logFilePrefix, command, now.Format("20060102T150405"), cfg.PID)
}

func parseLevel(level string) clog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return clog.DebugLevel
	case "warn", "warning":
		return clog.WarnLevel
	case "error":
		return clog.ErrorLevel
	default:
		return clog.InfoLevel
	}
}

func (l *fileLogger) Debug(msg string, args ...any) { l.log(clog.DebugLevel, msg, args) }
func (l *fileLogger) Info(msg string, args ...any)  { l.log(clog.InfoLevel, msg, args) }
func (l *fileLogger) Warn(msg string, args ...any)  { l.log(clog.WarnLevel, msg, args) }
func (l *fileLogger) Error(msg string, args ...any) { l.log(clog.ErrorLevel, msg, args) }

func (l *fileLogger) log(level clog.Level, msg string, args []any) {
	kv := make([]any, 0, len(l.fields)+len(args))
	kv = append(kv, l.fields...)
	kv = append(kv, args...)
	l.sink.write(level, l.redactor.scrub(msg), l.redactor.redact(kv))
}

func (l *fileLogger) With(args ...any) Logger {
	fields := append([]any(nil), l.fields...)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields = setField(fields, key, args[i+1])
	}
	return &fileLogger{sink: l.sink, redactor: l.redactor, fields: fields}
}

func setField(fields []any, key string, value any) []any {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key {
			fields[i+1] = value
			return fields
		}
	}
	return append(fields, key, value)
}

func (l *fileLogger) Shutdown() error {
	return l.sink.close()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (n noopLogger) With(...any) Logger { return n }
func (noopLogger) Shutdown() error      { return nil }

var (
	globalLogger     Logger
	globalLoggerOnce sync.Once
	globalLoggerMu   sync.RWMutex
)

// InitGlobal initializes the process logger from the global configuration
// and mirrors console output into it. Only the first call has an effect.
func InitGlobal() error {
	var err error
	globalLoggerOnce.Do(func() {
		var l Logger
		l, err = Init(FromGlobalConfig())
		if err != nil {
			return
		}
		globalLoggerMu.Lock()
		globalLogger = l
		globalLoggerMu.Unlock()
		colors.SetLogger(l)
		if path := CurrentLogFile(); path != "" {
			colors.Debug("Logging to file:", path)
		}
	})
	return err
}

// GetGlobal returns the process logger, or a no-op logger before InitGlobal.
func GetGlobal() Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	if globalLogger == nil {
		return noopLogger{}
	}
	return globalLogger
}

// ShutdownGlobal closes the process logger.
func ShutdownGlobal() error {
	return GetGlobal().Shutdown()
}

// CurrentLogFile returns the path of the process log file, or "" when
// logging to a file is off.
func CurrentLogFile() string {
	if l, ok := GetGlobal().(*fileLogger); ok {
		return l.sink.path
	}
	return ""
}
