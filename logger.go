package storagefs

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with storagefs-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithBackend adds a backend field to the logger.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", name),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogMount logs a mount attempt.
func (l *Logger) LogMount(mountPoint string, err error) {
	if err != nil {
		l.Error("mount failed",
			"mount_point", mountPoint,
			"error", err,
		)
	} else {
		l.Info("mounted",
			"mount_point", mountPoint,
		)
	}
}

// LogOpen logs a file open.
func (l *Logger) LogOpen(path string, mode FileMode, err error) {
	if err != nil {
		l.Error("open failed",
			"path", path,
			"mode", mode.String(),
			"error", err,
		)
	} else {
		l.Debug("opened",
			"path", path,
			"mode", mode.String(),
		)
	}
}

// LogRemove logs a file or folder removal.
func (l *Logger) LogRemove(path string, recursive bool, err error) {
	if err != nil {
		l.Error("remove failed",
			"path", path,
			"recursive", recursive,
			"error", err,
		)
	} else {
		l.Debug("removed",
			"path", path,
			"recursive", recursive,
		)
	}
}

// LogRename logs a rename.
func (l *Logger) LogRename(oldPath, newPath string, err error) {
	if err != nil {
		l.Error("rename failed",
			"old_path", oldPath,
			"new_path", newPath,
			"error", err,
		)
	} else {
		l.Debug("renamed",
			"old_path", oldPath,
			"new_path", newPath,
		)
	}
}
