// Package logging writes leveled, structured logs for qcman.
// Each run opens a timestamped file under the configured log
// directory; old files are pruned by count and age.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a record needs to be written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls where and how logs are written.
type Config struct {
	Level       Level
	LogDir      string
	MaxLogFiles int
	MaxLogAge   time.Duration
	// Console mirrors records to stderr.
	Console bool
	// JSONFormat switches the file format from logfmt-style text to JSON.
	JSONFormat bool
}

// DefaultConfig keeps ten files for at most a week under .qcman/logs.
func DefaultConfig() *Config {
	return &Config{
		Level:       LevelInfo,
		LogDir:      ".qcman/logs",
		MaxLogFiles: 10,
		MaxLogAge:   7 * 24 * time.Hour,
	}
}

// Logger wraps slog with a per-run log file.
type Logger struct {
	slog    *slog.Logger
	config  *Config
	logFile *os.File
	logPath string
	mu      sync.Mutex
}

const filePrefix = "qcman_"

// New opens a fresh log file named qcman_<timestamp>.log and starts a
// background prune of older files.
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := filePrefix + time.Now().Format("20060102_150405") + ".log"
	path := filepath.Join(config.LogDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	var out io.Writer = file
	if config.Console {
		out = io.MultiWriter(file, os.Stderr)
	}

	logger := &Logger{
		slog:    slog.New(newHandler(out, config)),
		config:  config,
		logFile: file,
		logPath: path,
	}

	go logger.Cleanup()

	return logger, nil
}

func newHandler(out io.Writer, config *Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	if config.JSONFormat {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// NewNoop returns a logger that discards everything. Used in tests and
// when file logging could not be set up.
func NewNoop() *Logger {
	return &Logger{
		slog:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: DefaultConfig(),
	}
}

// LogPath returns the path of the file this logger writes to.
func (l *Logger) LogPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logPath
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

func (l *Logger) clone(s *slog.Logger) *Logger {
	return &Logger{
		slog:    s,
		config:  l.config,
		logFile: l.logFile,
		logPath: l.logPath,
	}
}

// With returns a logger that attaches the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return l.clone(l.slog.With(args...))
}

// WithContext attaches the session and procedure identifiers carried in
// ctx, when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	s := l.slog
	if id, ok := ctx.Value(ContextKeySessionID).(string); ok && id != "" {
		s = s.With("session_id", id)
	}
	if proc, ok := ctx.Value(ContextKeyProcedure).(string); ok && proc != "" {
		s = s.With("procedure", proc)
	}
	return l.clone(s)
}

type contextKey string

const (
	ContextKeySessionID contextKey = "session_id"
	ContextKeyProcedure contextKey = "procedure"
)

// WithSessionID stores the session identifier in the context for
// WithContext to pick up.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithProcedure stores the procedure name in the context.
func WithProcedure(ctx context.Context, procedure string) context.Context {
	return context.WithValue(ctx, ContextKeyProcedure, procedure)
}

// Writer returns an io.Writer that logs every complete line it receives
// at the given level. Hook output and socket traces go through this.
func (l *Logger) Writer(level Level) io.Writer {
	return &lineWriter{logger: l, level: level}
}

type lineWriter struct {
	logger *Logger
	level  Level
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it buffered for the next Write.
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush logs whatever partial line remains in the buffer.
func (w *lineWriter) Flush() {
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	switch w.level {
	case LevelDebug:
		w.logger.Debug(line)
	case LevelWarn:
		w.logger.Warn(line)
	case LevelError:
		w.logger.Error(line)
	default:
		w.logger.Info(line)
	}
}

// Cleanup deletes qcman log files that exceed MaxLogFiles or MaxLogAge.
// The file currently being written is never touched.
func (l *Logger) Cleanup() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.LogDir == "" {
		return nil
	}

	entries, err := os.ReadDir(l.config.LogDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(l.config.LogDir, name),
			modTime: info.ModTime(),
		})
	}

	// Newest first, so the index doubles as the retained-file count.
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	now := time.Now()
	removed := 0
	for i, f := range files {
		if f.path == l.logPath {
			continue
		}
		tooMany := l.config.MaxLogFiles > 0 && i >= l.config.MaxLogFiles
		tooOld := l.config.MaxLogAge > 0 && now.Sub(f.modTime) > l.config.MaxLogAge
		if tooMany || tooOld {
			if err := os.Remove(f.path); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		l.slog.Debug("pruned old log files", "count", removed)
	}

	return nil
}
