// Package logging provides per-component loggers that share one
// session-scoped log file under ~/.gleaner/logs. When file logging is
// unavailable the loggers degrade to stderr instead of failing.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// session is the process-wide logging session: one uuid, one log file,
// shared by every component logger.
var session struct {
	once sync.Once
	id   string
	dir  string
	err  error
}

func ensureSession() (string, string, error) {
	session.once.Do(func() {
		session.id = uuid.New().String()

		home, err := os.UserHomeDir()
		if err != nil {
			session.err = fmt.Errorf("failed to resolve home directory: %w", err)
			return
		}
		session.dir = filepath.Join(home, ".gleaner", "logs")
		if err := os.MkdirAll(session.dir, 0750); err != nil {
			session.err = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return session.id, session.dir, session.err
}

// Logger writes level-prefixed entries for one component. All levels write
// unconditionally; there is no level filtering.
type Logger struct {
	component string
	sessionID string
	path      string

	mu        sync.Mutex
	out       io.Writer
	file      *os.File
	closeOnce sync.Once
}

// NewLogger creates a logger for a component, appending to the shared
// session log file. On failure it returns a stderr-backed logger together
// with the error, so callers can keep logging either way.
func NewLogger(component string) (*Logger, error) {
	id, dir, err := ensureSession()
	if err != nil {
		return fallbackLogger(component, id, err), err
	}

	path := filepath.Join(dir, id+"-gleaner.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return fallbackLogger(component, id, err), err
	}

	return &Logger{
		component: component,
		sessionID: id,
		path:      path,
		out:       file,
		file:      file,
	}, nil
}

func fallbackLogger(component, id string, cause error) *Logger {
	l := &Logger{
		component: component,
		sessionID: id,
		out:       os.Stderr,
	}
	l.Warnf("File logging unavailable, writing to stderr: %v", cause)
	return l
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.out, "[%s] [%s] [%s] %s\n", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// Writer exposes the logger's destination for subprocess output, so driver
// noise lands in the session log instead of the terminal.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out
}

// SessionID returns the logging session's uuid.
func (l *Logger) SessionID() string { return l.sessionID }

// LogPath returns the session log file path, or empty in fallback mode.
func (l *Logger) LogPath() string { return l.path }

// Close closes the log file and redirects further writes to stderr. Safe to
// call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.file != nil {
			err = l.file.Close()
			l.file = nil
			l.out = os.Stderr
		}
	})
	return err
}
