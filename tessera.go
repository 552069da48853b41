// tessera: hierarchical configuration persisted as human-editable INI text
//
// Philosophy:
// - One small, fully specified scanner instead of a regex soup
// - Malformed lines degrade to defaults, they never abort a load
// - Load and save are synchronous and serialized per file
// - Diagnostics go to a log, not to the caller
//
// Example Usage:
//   root := tessera.NewRootNode(tessera.Config{File: "~/.myapp.ini"})
//   root.Load(context.Background())
//
//   dirs := root.Node("directories")
//   user := dirs.Get("user", "/home/default")
//   dirs.Put("last", "/tmp")
//
//   root.Save(context.Background())
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for tessera operations
const (
	ErrCodeInvalidConfig = "TESSERA_INVALID_CONFIG"
	ErrCodeInvalidStyle  = "TESSERA_INVALID_STYLE"
	ErrCodeInvalidName   = "TESSERA_INVALID_NAME"
	ErrCodeInvalidPath   = "TESSERA_INVALID_PATH"
	ErrCodeNoFile        = "TESSERA_NO_FILE"
	ErrCodeFileNotFound  = "TESSERA_FILE_NOT_FOUND"
	ErrCodeIOError       = "TESSERA_IO_ERROR"
	ErrCodeInterrupted   = "TESSERA_INTERRUPTED"
	ErrCodeLexical       = "TESSERA_LEXICAL_ERROR"
	ErrCodeFormat        = "TESSERA_FORMAT_ERROR"
	ErrCodeClosed        = "TESSERA_WRITER_CLOSED"
	ErrCodeAudit         = "TESSERA_AUDIT_ERROR"
)

// ErrorHandler is called when a load or save degrades instead of failing.
// It receives the error and the file path the operation was bound to.
type ErrorHandler func(err error, filepath string)

// InfoHandler receives informational messages, such as a missing file
// being replaced by defaults.
type InfoHandler func(msg string, filepath string)

// HasCode reports whether err, or any error it wraps, carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if coder, ok := err.(errors.ErrorCoder); ok && string(coder.ErrorCode()) == code {
			return true
		}
		err = goerrors.Unwrap(err)
	}
	return false
}

// IsInterrupted reports whether err signals a cooperative cancellation.
func IsInterrupted(err error) bool {
	return HasCode(err, ErrCodeInterrupted)
}
