// audit_backend.go: Storage backends for the tessera audit journal
//
// Two backends share one small interface: SQLite for a queryable journal
// and JSONL for a grep-able append-only file. Selection follows the output
// file extension; when SQLite cannot be opened and a path was given, the
// journal falls back to JSONL next to it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend persists batches of audit events.
type auditBackend interface {
	Write(events []AuditEvent) error
	Stats() (*AuditStats, error)
	Close() error
}

// AuditStats summarizes the content of a journal.
type AuditStats struct {
	TotalEvents   int64            `json:"total_events"`
	EventsByLevel map[string]int64 `json:"events_by_level"`
	StorageSize   int64            `json:"storage_size"`
	Backend       string           `json:"backend"`
	Path          string           `json:"path"`
}

func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if strings.EqualFold(filepath.Ext(config.OutputFile), ".jsonl") {
		return newJSONLBackend(config.OutputFile)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}
	if config.OutputFile == "" {
		return nil, err
	}

	fallback := strings.TrimSuffix(config.OutputFile, filepath.Ext(config.OutputFile)) + ".jsonl"
	jsonl, jsonlErr := newJSONLBackend(fallback)
	if jsonlErr != nil {
		return nil, multierror.Append(err, jsonlErr)
	}
	return jsonl, nil
}

func defaultAuditPath() string {
	return filepath.Join(os.TempDir(), "tessera", "audit.db")
}

type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	level TEXT NOT NULL,
	event TEXT NOT NULL,
	component TEXT NOT NULL,
	file_path TEXT,
	operation TEXT,
	detail TEXT,
	process_id INTEGER,
	process_name TEXT,
	context TEXT,
	checksum TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_file ON audit_events(file_path);
CREATE INDEX IF NOT EXISTS idx_audit_events_operation ON audit_events(operation);`

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := config.OutputFile
	if dbPath == "" {
		dbPath = defaultAuditPath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to create audit database directory").
			WithContext("path", dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to open audit database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to ping audit database").
			WithContext("path", dbPath)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to create audit schema")
	}

	stmt, err := db.Prepare(`INSERT INTO audit_events (
		timestamp, level, event, component, file_path, operation,
		detail, process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to prepare audit insert")
	}

	return &sqliteAuditBackend{db: db, dbPath: dbPath, insertStmt: stmt}, nil
}

// Write inserts the batch in one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New(ErrCodeAudit, "audit backend is closed")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to begin audit transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := tx.Stmt(s.insertStmt)
	defer stmt.Close()

	for _, event := range events {
		contextJSON := ""
		if event.Context != nil {
			data, merr := json.Marshal(event.Context)
			if merr != nil {
				return errors.Wrap(merr, ErrCodeAudit, "failed to serialize audit context")
			}
			contextJSON = string(data)
		}
		if _, err = stmt.Exec(
			event.Timestamp.Format(time.RFC3339Nano),
			event.Level.String(),
			event.Event,
			event.Component,
			event.FilePath,
			event.Operation,
			event.Detail,
			event.ProcessID,
			event.ProcessName,
			contextJSON,
			event.Checksum,
		); err != nil {
			return errors.Wrap(err, ErrCodeAudit, "failed to insert audit event")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to commit audit transaction")
	}
	return nil
}

func (s *sqliteAuditBackend) Stats() (*AuditStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New(ErrCodeAudit, "audit backend is closed")
	}

	stats := &AuditStats{
		EventsByLevel: make(map[string]int64),
		Backend:       "sqlite",
		Path:          s.dbPath,
	}
	rows, err := s.db.Query("SELECT level, COUNT(*) FROM audit_events GROUP BY level")
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to query audit events")
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, errors.Wrap(err, ErrCodeAudit, "failed to scan audit stats")
		}
		stats.EventsByLevel[level] = count
		stats.TotalEvents += count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to read audit stats")
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.StorageSize = info.Size()
	}
	return stats, nil
}

func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.insertStmt.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type jsonlAuditBackend struct {
	file   *os.File
	path   string
	mu     sync.Mutex
	closed bool
}

func newJSONLBackend(path string) (*jsonlAuditBackend, error) {
	if path == "" {
		return nil, errors.New(ErrCodeAudit, "JSONL audit backend requires an output file")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to create audit log directory").
			WithContext("path", path)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- operator supplied audit path
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to open audit log").
			WithContext("path", path)
	}
	return &jsonlAuditBackend{file: file, path: path}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New(ErrCodeAudit, "audit backend is closed")
	}

	w := bufio.NewWriter(j.file)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, ErrCodeAudit, "failed to serialize audit event")
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, ErrCodeAudit, "failed to append audit events")
	}
	return nil
}

// Stats scans the whole file; JSONL keeps no index.
func (j *jsonlAuditBackend) Stats() (*AuditStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := &AuditStats{
		EventsByLevel: make(map[string]int64),
		Backend:       "jsonl",
		Path:          j.path,
	}
	events, err := ReadAuditLog(j.path)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		stats.EventsByLevel[e.Level.String()]++
		stats.TotalEvents++
	}
	if info, err := os.Stat(j.path); err == nil {
		stats.StorageSize = info.Size()
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	var result *multierror.Error
	if err := j.file.Sync(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := j.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// ReadAuditLog decodes every event of a JSONL journal.
func ReadAuditLog(path string) ([]AuditEvent, error) {
	file, err := os.Open(path) // #nosec G304 -- operator supplied audit path
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to open audit log").
			WithContext("path", path)
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var e AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, errors.Wrap(err, ErrCodeAudit, fmt.Sprintf("malformed audit record at line %d", line))
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, ErrCodeAudit, "failed to read audit log")
	}
	return events, nil
}
