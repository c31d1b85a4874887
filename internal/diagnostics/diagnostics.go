// Package diagnostics is the "diagnostic stream" recoverable conditions are
// written to: ApiMap logs parse failures here, and the CLI logs archive
// files it could not load. None of these raise errors; they are written here
// and resolution proceeds. Files that vanish from the workspace are dropped
// without a log line, and `require`d library names are not checked against
// the loaded archives, so nothing is logged for an unknown library.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// SetOutput points the diagnostic stream at w. Passing nil silences it,
// which is the default.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// OpenLogFile opens a timestamped log file under dir and routes the
// diagnostic stream to it, returning the path. Call Close when done.
func OpenLogFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create diagnostics directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("apimap-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("open diagnostics log: %w", err)
	}
	mu.Lock()
	file = f
	output = f
	mu.Unlock()
	return path, nil
}

// Close closes the log file opened by OpenLogFile, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file, output = nil, nil
	return err
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// ParseFailure logs that filename failed to parse; the caller still
// installs an empty Source for filename so other references don't dangle
// (spec.md §7).
func ParseFailure(filename string, err error) {
	log("PARSE", "%s: %v", filename, err)
}

// MissingFile logs that filename was dropped from the workspace because it
// no longer exists on disk.
func MissingFile(filename string) {
	log("MISSING", "%s", filename)
}

// UnknownLibrary logs that a required library has no documentation
// archive; resolution proceeds without it.
func UnknownLibrary(name string, err error) {
	log("LIBRARY", "%s: %v", name, err)
}

// Event logs a free-form diagnostic line under component.
func Event(component, format string, args ...any) {
	log(component, format, args...)
}

func log(component, format string, args ...any) {
	w := writer()
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(w, "[%s] %s\n", component, msg)
}
