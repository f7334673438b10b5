package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OpenLogFile creates the log directory if needed and opens a dated agent log
// file for appending. The caller owns closing the returned file.
func OpenLogFile(dir string) (*os.File, error) {
	if dir == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("agent-%s.log", time.Now().UTC().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
