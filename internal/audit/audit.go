// Package audit provides the JSONL audit trail of hookline decisions.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/hookline/hookline/internal/constants"
	"github.com/hookline/hookline/internal/logger"
)

// TimestampFormat is the format used for audit log timestamps.
const TimestampFormat = "2006-01-02T15:04:05.0Z07:00"

// DefaultMaxSize is the file size at which the log rotates.
const DefaultMaxSize = 10 << 20 // 10 MiB

// Entry represents a single audit log entry (v1 format). One entry per
// process invocation.
type Entry struct {
	Version      int          `json:"version"`
	InvocationID string       `json:"invocation_id"`
	SessionID    string       `json:"session_id"`
	Timestamp    string       `json:"timestamp"`
	DurationMs   float64      `json:"duration_ms"`
	Event        string       `json:"event"`
	ToolName     string       `json:"tool_name,omitempty"`
	Command      string       `json:"command,omitempty"`
	Rules        []RuleRecord `json:"rules"`
	Outcome      string       `json:"outcome"`
	Rule         string       `json:"rule,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	DryRun       bool         `json:"dry_run,omitempty"`
}

// RuleRecord records what happened to one rule during routing.
type RuleRecord struct {
	Name      string  `json:"name"`
	Matched   bool    `json:"matched"`
	Skipped   string  `json:"skipped,omitempty"`
	Error     string  `json:"error,omitempty"`
	Outcome   string  `json:"outcome,omitempty"`
	ElapsedMs float64 `json:"elapsed_ms,omitempty"`
}

var (
	auditFile *os.File
	auditPath string
	maxSize   int64 = DefaultMaxSize
	mu        sync.Mutex
	enabled   bool
)

// NewInvocationID returns a fresh id tying an entry to one process run.
func NewInvocationID() string {
	return uuid.NewString()
}

// DefaultLogPath returns the default audit log path
// (~/.local/share/hookline/audit.log).
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", constants.AppName, "audit.log"), nil
}

// Init initializes the audit log. If path is empty, uses the default
// path. Pass disable=true to turn audit logging off.
func Init(path string, disable bool) error {
	mu.Lock()
	defer mu.Unlock()

	if disable {
		enabled = false
		return nil
	}

	if path == "" {
		var err error
		path, err = DefaultLogPath()
		if err != nil {
			logger.Debug("failed to get default audit log path", "error", err)
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		logger.Debug("failed to create audit log directory", "error", err)
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		logger.Debug("failed to open audit log file", "error", err)
		return err
	}

	auditFile = f
	auditPath = path
	enabled = true
	logger.Debug("audit logging initialized", "path", path)
	return nil
}

// SetMaxSize overrides the rotation threshold. Non-positive keeps the
// current value.
func SetMaxSize(n int64) {
	mu.Lock()
	defer mu.Unlock()
	if n > 0 {
		maxSize = n
	}
}

// Close closes the audit log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if auditFile != nil {
		err := auditFile.Close()
		auditFile = nil
		enabled = false
		return err
	}
	return nil
}

// Log writes an entry to the audit log, rotating first if the file has
// grown past the size limit. If audit logging is not initialized or
// disabled, this is a no-op.
func Log(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || auditFile == nil {
		return nil
	}

	if err := rotateIfNeeded(); err != nil {
		// A failed rotation must not lose the entry.
		logger.Warn("audit log rotation failed", "error", err)
	}

	entry.Timestamp = time.Now().UTC().Format(TimestampFormat)

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug("failed to marshal audit entry", "error", err)
		return err
	}

	if _, err := auditFile.Write(append(data, '\n')); err != nil {
		logger.Debug("failed to write audit entry", "error", err)
		return err
	}

	return nil
}

// IsEnabled returns whether audit logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Reset resets the audit state. Used for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if auditFile != nil {
		auditFile.Close()
	}
	auditFile = nil
	auditPath = ""
	maxSize = DefaultMaxSize
	enabled = false
}

// rotateIfNeeded moves the current log aside as a gzip archive and
// reopens a fresh file once the size limit is reached. Callers hold mu.
func rotateIfNeeded() error {
	info, err := auditFile.Stat()
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	if err := auditFile.Close(); err != nil {
		return err
	}
	auditFile = nil

	archive := fmt.Sprintf("%s.%s.gz", auditPath, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := compressFile(auditPath, archive); err != nil {
		// Reopen in append mode so logging continues on the old file.
		return reopenAfter(err)
	}
	if err := os.Remove(auditPath); err != nil {
		return reopenAfter(err)
	}

	f, err := os.OpenFile(auditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		enabled = false
		return err
	}
	auditFile = f
	logger.Debug("audit log rotated", "archive", archive)
	return nil
}

func reopenAfter(cause error) error {
	f, err := os.OpenFile(auditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		enabled = false
		return err
	}
	auditFile = f
	return cause
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
