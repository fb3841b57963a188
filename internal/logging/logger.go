// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Entry is a single log record kept in memory for the monitor feed.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Data      string `json:"data,omitempty"`
}

// Logger wraps zerolog with file output and a short in-memory history.
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string
	mu      sync.RWMutex
	history []Entry
	maxHist int
	onLog   func(Entry)
}

// Config holds logger configuration
type Config struct {
	LogDir     string   // Directory for log files (default: ~/.avatarcast/logs)
	Level      LogLevel // Minimum log level (default: info)
	MaxHistory int      // Max entries to keep in memory (default: 500)
	Console    bool     // Also log to console (default: true)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogDir:     filepath.Join(home, ".avatarcast", "logs"),
		Level:      LevelInfo,
		MaxHistory: 500,
		Console:    true,
	}
}

// New creates a new Logger with file and console output
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFileName := fmt.Sprintf("avatarcast_%s.log", time.Now().Format("2006-01-02"))
	logPath := filepath.Join(cfg.LogDir, logFileName)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var writers []io.Writer
	writers = append(writers, file)

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	multi := io.MultiWriter(writers...)

	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	zlog := zerolog.New(multi).With().
		Timestamp().
		Str("app", "avatarcast").
		Logger()

	return &Logger{
		zlog:    zlog,
		file:    file,
		logPath: logPath,
		history: make([]Entry, 0, cfg.MaxHistory),
		maxHist: cfg.MaxHistory,
	}, nil
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Reconfigure applies the level and console settings once the config file
// has been read; the logger bootstraps before config is available. Call
// during startup, before component loggers are handed out.
func (l *Logger) Reconfigure(level LogLevel, console bool) {
	zerolog.SetGlobalLevel(zerologLevel(level))

	l.mu.Lock()
	defer l.mu.Unlock()
	writers := []io.Writer{l.file}
	if console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
	l.zlog = zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Str("app", "avatarcast").
		Logger()
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// SetOnLog sets a callback invoked for every record (monitor streaming).
func (l *Logger) SetOnLog(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLog = fn
}

func (l *Logger) addToHistory(e Entry) {
	l.mu.Lock()
	l.history = append(l.history, e)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
	cb := l.onLog
	l.mu.Unlock()

	if cb != nil {
		cb(e)
	}
}

// History returns up to limit recent entries, newest last.
func (l *Logger) History(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	out := make([]Entry, limit)
	copy(out, l.history[len(l.history)-limit:])
	return out
}

func (l *Logger) record(level, component, message string, data map[string]interface{}) {
	l.addToHistory(Entry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Component: component,
		Message:   message,
		Data:      formatData(data),
	})
}

// Debug logs a debug-level message for a component.
func (l *Logger) Debug(component, message string, data map[string]interface{}) {
	ev := l.zlog.Debug().Str("component", component)
	addFields(ev, data).Msg(message)
	l.record("debug", component, message, data)
}

// Info logs an info-level message for a component.
func (l *Logger) Info(component, message string, data map[string]interface{}) {
	ev := l.zlog.Info().Str("component", component)
	addFields(ev, data).Msg(message)
	l.record("info", component, message, data)
}

// Warn logs a warning for a component.
func (l *Logger) Warn(component, message string, data map[string]interface{}) {
	ev := l.zlog.Warn().Str("component", component)
	addFields(ev, data).Msg(message)
	l.record("warn", component, message, data)
}

// Error logs an error for a component.
func (l *Logger) Error(component, message string, err error, data map[string]interface{}) {
	ev := l.zlog.Error().Str("component", component).Err(err)
	addFields(ev, data).Msg(message)
	if err != nil {
		if data == nil {
			data = map[string]interface{}{}
		}
		data["error"] = err.Error()
	}
	l.record("error", component, message, data)
}

// LogPath returns the current log file path
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func addFields(ev *zerolog.Event, data map[string]interface{}) *zerolog.Event {
	for k, v := range data {
		ev = ev.Interface(k, v)
	}
	return ev
}

func formatData(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	out := ""
	for k, v := range data {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, v)
	}
	return out
}
