package download

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Markers that flag a log line as a problem.
const (
	WarningMarker = "WARNING: "
	ErrorMarker   = "ERROR: "
)

// LogFileName is the name of the shared log inside the target directory.
const LogFileName = "log"

// Log is the append-only status sink shared by every worker.
//
// Each call writes exactly one line with a single Write, under a mutex, so
// lines from concurrent workers never interleave. Warning and error lines
// are also kept in memory so a phase can be judged without re-reading the
// file.
type Log struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	path     string
	failures []string
}

// OpenLog creates (or truncates) the log file at path.
func OpenLog(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return &Log{w: f, closer: f, path: path}, nil
}

// NewLog returns a Log writing to w. Close does not close w.
func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

// Path returns the log file path, or "" for a Log created with NewLog.
func (l *Log) Path() string {
	return l.path
}

// Sample records that work on a sample has started.
func (l *Log) Sample(name string) {
	l.writeLine(name, false)
}

// Printf records a status line.
func (l *Log) Printf(format string, args ...any) {
	l.writeLine(fmt.Sprintf(format, args...), false)
}

// Warnf records a warning line. Any warning makes the current run fail.
func (l *Log) Warnf(format string, args ...any) {
	l.writeLine(WarningMarker+fmt.Sprintf(format, args...), true)
}

// Errorf records an error line. Any error makes the current run fail.
func (l *Log) Errorf(format string, args ...any) {
	l.writeLine(ErrorMarker+fmt.Sprintf(format, args...), true)
}

// Failures returns every warning and error line recorded so far.
func (l *Log) Failures() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.failures...)
}

// Failed reports whether any warning or error line has been recorded.
func (l *Log) Failed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures) > 0
}

// Close closes the underlying file, if the Log owns one.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Remove closes and deletes the log file.
func (l *Log) Remove() error {
	if err := l.Close(); err != nil {
		return err
	}
	if l.path == "" {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsFailureLine reports whether a log line carries a warning or error marker.
func IsFailureLine(line string) bool {
	return strings.HasPrefix(line, WarningMarker) || strings.HasPrefix(line, ErrorMarker)
}

func (l *Log) writeLine(line string, failure bool) {
	line = strings.ReplaceAll(strings.TrimRight(line, "\n"), "\n", " ")

	l.mu.Lock()
	defer l.mu.Unlock()
	if failure {
		l.failures = append(l.failures, line)
	}
	// A failing sink must not stop the workers; failures are still counted.
	_, _ = io.WriteString(l.w, line+"\n")
}
