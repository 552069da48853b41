// validate.go: Lexical validation of configuration text
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"io"

	"github.com/agilira/go-errors"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

type collectingHandler struct {
	errs *multierror.Error
}

func (h *collectingHandler) Comment(string) {}
func (h *collectingHandler) Section(string) {}
func (h *collectingHandler) Key(string)     {}
func (h *collectingHandler) Value(string)   {}

func (h *collectingHandler) Error(state ParseState, char rune, line, col int) {
	h.errs = multierror.Append(h.errs, &LexicalError{State: state, Char: char, Line: line, Col: col})
}

// Validate scans r and returns every lexical error as a
// *multierror.Error of *LexicalError, or nil for clean input. Read
// failures and cancellation are returned as they are.
func Validate(ctx context.Context, r io.Reader, style *LexicalStyle) error {
	h := &collectingHandler{}
	if err := Parse(ctx, r, style, h); err != nil {
		return err
	}
	return h.errs.ErrorOrNil()
}

// ValidateFile runs Validate on path read from fs.
func ValidateFile(ctx context.Context, fs afero.Fs, path string, style *LexicalStyle) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	file, err := fs.Open(path)
	if err != nil {
		return errors.Wrap(err, ErrCodeFileNotFound, "cannot open configuration file").
			WithContext("path", path)
	}
	defer file.Close()
	return Validate(ctx, file, style)
}

// LexicalErrors extracts the lexical errors from an error returned by
// Validate.
func LexicalErrors(err error) []*LexicalError {
	merr, ok := err.(*multierror.Error)
	if !ok {
		if le, ok := err.(*LexicalError); ok {
			return []*LexicalError{le}
		}
		return nil
	}
	out := make([]*LexicalError, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		if le, ok := e.(*LexicalError); ok {
			out = append(out, le)
		}
	}
	return out
}
