package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	debugFile *os.File
	debugOnce sync.Once
	logsDir   string
	quiet     bool
	mu        sync.RWMutex
)

// ConfigureDebug sets the directory for debug logs
func ConfigureDebug(dir string) {
	mu.Lock()
	defer mu.Unlock()
	logsDir = dir
}

// SetQuiet disables debug logging even when a directory is configured
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// Debug writes a message to debug.log file in the configured directory
func Debug(format string, args ...any) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	mu.RLock()
	dir, off := logsDir, quiet
	mu.RUnlock()

	if dir == "" || off {
		return
	}

	debugOnce.Do(func() {
		_ = os.MkdirAll(dir, 0o755)
		debugFile, _ = os.Create(filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))))
	})

	if debugFile != nil {
		fmt.Fprintf(debugFile, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
	}
}

// CleanupLogs removes old log files, keeping only the most recent retentionCount files
func CleanupLogs(retentionCount int) {
	if retentionCount < 0 {
		return // Keep all logs
	}

	mu.RLock()
	dir := logsDir
	mu.RUnlock()
	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logs []fs.DirEntry
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "debug-") && strings.HasSuffix(entry.Name(), ".log") {
			logs = append(logs, entry)
		}
	}

	// debug-YYYYMMDD-HHMMSS.log sorts chronologically; newest first
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Name() > logs[j].Name()
	})

	if len(logs) <= retentionCount {
		return
	}

	for _, log := range logs[retentionCount:] {
		_ = os.Remove(filepath.Join(dir, log.Name()))
	}
}

// ShortID returns the first 8 characters of an ID for display
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// EnsureAbsPath returns an absolute version of path, or path unchanged if it
// cannot be resolved
func EnsureAbsPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
