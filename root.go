// root.go: File-bound configuration tree and its load/save lifecycle
//
// A RootNode is the root of a Node tree bound to a file. Load and Save
// never fail on bad data or I/O: problems degrade to "configuration
// unchanged" and are reported through the ErrorHandler and the audit
// journal. Only caller bugs come back as errors.
//
// Load, Save and Exclusive serialize on the root's lifecycle lock. Plain
// Get and Put calls do not take it; callers that need a mutation to be
// atomic with respect to a load or save use Exclusive.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// Outcome tells how a load or save ended.
type Outcome int

const (
	// OutcomeUnbound: no file was bound, nothing happened
	OutcomeUnbound Outcome = iota
	// OutcomeMissing: the file does not exist, the tree is unchanged
	OutcomeMissing
	OutcomeLoaded
	OutcomeSaved
	// OutcomeFailed: an I/O or format error stopped the operation
	OutcomeFailed
	// OutcomeInterrupted: the context was canceled
	OutcomeInterrupted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnbound:
		return "unbound"
	case OutcomeMissing:
		return "missing"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeSaved:
		return "saved"
	case OutcomeFailed:
		return "failed"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// treeNode names the embedded root so Node(path) stays a promoted method.
type treeNode = Node

// RootNode is a Node tree bound to a configuration file. All Node methods
// are available on it directly.
type RootNode struct {
	*treeNode

	lifecycle sync.Mutex

	fileMu sync.RWMutex
	file   string

	config    *Config
	audit     *AuditLogger
	ownsAudit bool
}

// NewRootNode creates an empty tree bound to config.File. When the audit
// journal cannot be opened the failure goes to the ErrorHandler and the
// root runs without a journal.
func NewRootNode(config Config) *RootNode {
	cfg := config.WithDefaults()
	r := &RootNode{
		treeNode: NewNode(),
		config:   cfg,
	}

	if cfg.File != "" {
		if err := r.SetFile(cfg.File); err != nil {
			cfg.ErrorHandler(err, cfg.File)
			r.file = cfg.File
		}
	}

	switch {
	case cfg.AuditLogger != nil:
		r.audit = cfg.AuditLogger
	case cfg.Audit.Enabled:
		logger, err := NewAuditLogger(cfg.Audit)
		if err != nil {
			cfg.ErrorHandler(err, r.File())
		} else {
			r.audit = logger
			r.ownsAudit = true
		}
	}
	return r
}

// SetFile binds the root to path, expanding a leading "~". An empty path
// unbinds it.
func (r *RootNode) SetFile(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	r.fileMu.Lock()
	r.file = expanded
	r.fileMu.Unlock()
	return nil
}

// File returns the bound path, or "" when unbound.
func (r *RootNode) File() string {
	r.fileMu.RLock()
	defer r.fileMu.RUnlock()
	return r.file
}

// Tree returns the root node of the tree.
func (r *RootNode) Tree() *Node { return r.treeNode }

// Style returns the lexical style in use.
func (r *RootNode) Style() *LexicalStyle { return r.config.Style }

// Fs returns the filesystem in use.
func (r *RootNode) Fs() afero.Fs { return r.config.Fs }

// AuditLogger returns the journal, or nil.
func (r *RootNode) AuditLogger() *AuditLogger { return r.audit }

// Close flushes and releases a journal owned by the root.
func (r *RootNode) Close() error {
	if r.ownsAudit {
		return r.audit.Close()
	}
	return r.audit.Flush()
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrap(err, ErrCodeInvalidPath, "cannot expand configuration path").
			WithContext("path", path)
	}
	return expanded, nil
}

// Lock acquires the lifecycle lock. Load and Save block until Unlock.
// Do not call Load or Save while holding it; use Exclusive for that.
func (r *RootNode) Lock() { r.lifecycle.Lock() }

// Unlock releases the lifecycle lock.
func (r *RootNode) Unlock() { r.lifecycle.Unlock() }

// Txn is the handle passed to Exclusive. Its Load and Save run under the
// lock the caller already holds.
type Txn struct {
	root *RootNode
}

// Root returns the tree.
func (t *Txn) Root() *Node { return t.root.treeNode }

// Load behaves like RootNode.Load.
func (t *Txn) Load(ctx context.Context) Outcome {
	return t.root.load(ctx, t.root.File(), false)
}

// Reload behaves like RootNode.Reload.
func (t *Txn) Reload(ctx context.Context) Outcome {
	return t.root.load(ctx, t.root.File(), true)
}

// Save behaves like RootNode.Save.
func (t *Txn) Save(ctx context.Context) Outcome {
	return t.root.save(ctx, t.root.File())
}

// Exclusive runs fn holding the lifecycle lock, so no other Load or Save
// interleaves with the mutations fn makes.
func (r *RootNode) Exclusive(fn func(tx *Txn) error) error {
	if fn == nil {
		return errors.New(ErrCodeInvalidConfig, "exclusive function cannot be nil")
	}
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return fn(&Txn{root: r})
}

// Load merges the bound file into the tree. Values in the file overwrite
// values in the tree; nothing is removed.
func (r *RootNode) Load(ctx context.Context) (Outcome, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.load(ctx, r.File(), false), nil
}

// LoadFile merges path into the tree without rebinding the root.
func (r *RootNode) LoadFile(ctx context.Context, path string) (Outcome, error) {
	expanded, err := r.explicitPath(path)
	if err != nil {
		return OutcomeFailed, err
	}
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.load(ctx, expanded, false), nil
}

// Reload makes the tree mirror the bound file: keys and sections absent
// from the file are removed. A missing or unreadable file leaves the tree
// unchanged.
func (r *RootNode) Reload(ctx context.Context) (Outcome, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.load(ctx, r.File(), true), nil
}

// Save writes the tree to the bound file.
func (r *RootNode) Save(ctx context.Context) (Outcome, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.save(ctx, r.File()), nil
}

// SaveFile writes the tree to path without rebinding the root.
func (r *RootNode) SaveFile(ctx context.Context, path string) (Outcome, error) {
	expanded, err := r.explicitPath(path)
	if err != nil {
		return OutcomeFailed, err
	}
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.save(ctx, expanded), nil
}

func (r *RootNode) explicitPath(path string) (string, error) {
	if path == "" {
		return "", errors.New(ErrCodeNoFile, "configuration path cannot be empty")
	}
	return expandPath(path)
}

func (r *RootNode) formatFor(path string) Format {
	if r.config.Format != nil {
		return r.config.Format
	}
	return DetectFormat(path)
}

// report sends err to the ErrorHandler and the journal.
func (r *RootNode) report(level AuditLevel, event, path, op string, err error) {
	r.config.ErrorHandler(err, path)
	r.audit.Log(level, event, path, op, err.Error(), nil)
}

func (r *RootNode) load(ctx context.Context, path string, mirror bool) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if path == "" {
		return OutcomeUnbound
	}
	op := uuid.NewString()

	file, err := r.config.Fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			const msg = "configuration file not found, using defaults"
			r.config.InfoHandler(msg, path)
			r.audit.Log(AuditInfo, EventLoadMissing, path, op, msg, nil)
			return OutcomeMissing
		}
		r.report(AuditWarn, EventLoadFailed, path, op,
			errors.Wrap(err, ErrCodeIOError, "failed to open configuration file").WithContext("path", path))
		return OutcomeFailed
	}
	defer file.Close()

	target := r.treeNode
	if mirror {
		target = NewNode()
	}

	problems := 0
	opts := FormatOptions{
		Style: r.config.Style,
		Report: func(e error) {
			problems++
			r.config.ErrorHandler(e, path)
			if le, ok := e.(*LexicalError); ok {
				r.audit.Log(AuditWarn, EventLexicalError, path, op, e.Error(), map[string]interface{}{
					"line": le.Line, "column": le.Col, "state": le.State.String(),
				})
				return
			}
			r.audit.Log(AuditWarn, EventEntrySkipped, path, op, e.Error(), nil)
		},
	}

	err = r.formatFor(path).Decode(ctx, file, target, opts)
	switch {
	case err == nil:
	case IsInterrupted(err):
		r.report(AuditWarn, EventLoadInterrupted, path, op, err)
		return OutcomeInterrupted
	default:
		r.report(AuditWarn, EventLoadFailed, path, op, err)
		return OutcomeFailed
	}

	if mirror {
		r.treeNode.mirror(target)
	}
	r.audit.Log(AuditInfo, EventLoadComplete, path, op, "", map[string]interface{}{"problems": problems})
	return OutcomeLoaded
}

func (r *RootNode) save(ctx context.Context, path string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if path == "" {
		return OutcomeUnbound
	}
	op := uuid.NewString()
	fs := r.config.Fs

	dir := filepath.Dir(path)
	if info, err := fs.Stat(dir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New(ErrCodeIOError, "parent is not a directory")
		}
		r.report(AuditCritical, EventSaveFailed, path, op,
			errors.Wrap(err, ErrCodeIOError, "configuration directory does not exist").WithContext("dir", dir))
		return OutcomeFailed
	}

	mode := os.FileMode(0644)
	if info, err := fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".tmp." + strconv.FormatInt(time.Now().UnixNano(), 10)
	file, err := fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		r.report(AuditCritical, EventSaveFailed, path, op,
			errors.Wrap(err, ErrCodeIOError, "failed to create temporary file").WithContext("path", tmp))
		return OutcomeFailed
	}

	opts := FormatOptions{
		Style:  r.config.Style,
		Header: r.config.Header,
		Report: func(e error) {
			r.config.ErrorHandler(e, path)
			r.audit.Log(AuditWarn, EventEntrySkipped, path, op, e.Error(), nil)
		},
	}

	// Encode closes file on every path
	if err := r.formatFor(path).Encode(ctx, file, r.treeNode, opts); err != nil {
		_ = fs.Remove(tmp)
		if IsInterrupted(err) {
			r.report(AuditWarn, EventSaveInterrupted, path, op, err)
			return OutcomeInterrupted
		}
		r.report(AuditCritical, EventSaveFailed, path, op, err)
		return OutcomeFailed
	}

	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		r.report(AuditCritical, EventSaveFailed, path, op,
			errors.Wrap(err, ErrCodeIOError, "failed to replace configuration file").WithContext("path", path))
		return OutcomeFailed
	}

	r.audit.Log(AuditInfo, EventSaveComplete, path, op, "", nil)
	return OutcomeSaved
}
