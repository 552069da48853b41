// audit.go: Audit journal for configuration load and save
//
// The journal records what happened to configuration files: loads, saves,
// missing files, lexical errors and interruptions. Events are buffered and
// flushed to a pluggable backend (SQLite or JSONL).
//
// Features:
// - Tamper detection through a SHA-256 checksum per event
// - Cached timestamps, so logging stays off the syscall path
// - Operation IDs tie together the events of one load or save
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
	AuditSecurity
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	case AuditSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// ParseAuditLevel accepts the level names case-insensitively.
func ParseAuditLevel(s string) (AuditLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return AuditInfo, nil
	case "WARN", "WARNING":
		return AuditWarn, nil
	case "CRITICAL":
		return AuditCritical, nil
	case "SECURITY":
		return AuditSecurity, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidConfig, "unknown audit level").
			WithContext("level", s)
	}
}

// Audit event names
const (
	EventLoadMissing     = "load_missing"
	EventLoadComplete    = "load_complete"
	EventLoadFailed      = "load_failed"
	EventLoadInterrupted = "load_interrupted"
	EventLexicalError    = "lexical_error"
	EventSaveComplete    = "save_complete"
	EventSaveFailed      = "save_failed"
	EventSaveInterrupted = "save_interrupted"
	EventEntrySkipped    = "entry_skipped"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	Component   string                 `json:"component"`
	FilePath    string                 `json:"file_path,omitempty"`
	Operation   string                 `json:"operation,omitempty"`
	Detail      string                 `json:"detail,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"`
}

// AuditConfig configures the audit journal
type AuditConfig struct {
	Enabled bool `json:"enabled"`
	// OutputFile ending in .jsonl selects the JSONL backend; any other
	// value, or empty, selects SQLite.
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
	Component     string        `json:"component"`
}

// DefaultAuditConfig returns an enabled journal writing to the shared
// SQLite database under the system temp directory.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
		Component:     "tessera",
	}
}

// AuditLogger buffers audit events and writes them to its backend.
// A nil *AuditLogger is valid and discards everything.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger opens the backend selected by config and starts the
// background flusher when FlushInterval is positive.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultAuditConfig().BufferSize
	}
	if config.Component == "" {
		config.Component = "tessera"
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: filepath.Base(os.Args[0]),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an event. Events below MinLevel are dropped.
func (al *AuditLogger) Log(level AuditLevel, event, filePath, operation, detail string, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		Component:   al.config.Component,
		FilePath:    filePath,
		Operation:   operation,
		Detail:      detail,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = checksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe()
	}
	al.bufferMu.Unlock()
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Stats returns counters from the backend.
func (al *AuditLogger) Stats() (*AuditStats, error) {
	if al == nil {
		return &AuditStats{EventsByLevel: map[string]int64{}}, nil
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.Stats()
}

// Close stops the flusher, writes pending events and releases the backend.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = ferr
		}
		if cerr := al.backend.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, ErrCodeAudit, "failed to close audit backend")
		}
	})
	return err
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller holds bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to write audit events")
	}
	al.buffer = al.buffer[:0]
	return nil
}

// checksum is the tamper-detection hash of an event.
func checksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.Component, event.FilePath, event.Operation, event.Detail)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
}

// VerifyChecksum reports whether event still matches its checksum.
func VerifyChecksum(event AuditEvent) bool {
	return event.Checksum == checksum(event)
}
