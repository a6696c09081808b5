package logger

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// openSink opens dir/name for appending. Failures are reported on the
// standard logger and yield nil so the caller falls back to stdout only.
func openSink(dir, name string) *os.File {
	dir = strings.TrimSpace(dir)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return nil
	}
	return f
}
