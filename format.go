// format.go: Pluggable file formats for configuration trees
//
// A Format moves a Node tree to and from a byte stream. The INI text
// format is built in and always the fallback; the YAML mirror is
// registered alongside it. Further formats can be added with
// RegisterFormat, and later registrations win over earlier ones for the
// same extension.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// FormatOptions carries the per-call settings of a decode or encode.
type FormatOptions struct {
	// Style drives character classes, encoding and line terminator.
	// Nil selects FlexibleStyle.
	Style *LexicalStyle

	// Header is written as a leading comment block by formats that
	// support comments.
	Header string

	// Report receives recoverable problems: lexical errors while
	// decoding, entries skipped because their names cannot be written.
	Report func(err error)
}

func (o FormatOptions) style() *LexicalStyle {
	if o.Style == nil {
		return FlexibleStyle()
	}
	return o.Style
}

func (o FormatOptions) report(err error) {
	if o.Report != nil {
		o.Report(err)
	}
}

// Format reads and writes a configuration tree.
//
// Decode merges the stream into the tree: values found in the stream
// overwrite existing ones, everything else is left alone. Encode owns w
// and closes it before returning, on every path.
type Format interface {
	Name() string
	Extensions() []string
	Decode(ctx context.Context, r io.Reader, into *Node, opts FormatOptions) error
	Encode(ctx context.Context, w io.WriteCloser, from *Node, opts FormatOptions) error
}

var (
	formatsMu sync.RWMutex
	formats   = []Format{INIFormat{}, YAMLFormat{}}
)

// RegisterFormat adds f to the registry.
func RegisterFormat(f Format) {
	if f == nil {
		return
	}
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats = append(formats, f)
}

// Formats returns the registered formats, most recent last.
func Formats() []Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// DetectFormat picks the format for path by extension, case-insensitively.
// Unknown extensions get INIFormat.
func DetectFormat(path string) Format {
	f, _ := formatByExtension(path)
	return f
}

func formatByExtension(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return INIFormat{}, false
	}

	formatsMu.RLock()
	defer formatsMu.RUnlock()
	for i := len(formats) - 1; i >= 0; i-- {
		for _, e := range formats[i].Extensions() {
			if strings.EqualFold(e, ext) {
				return formats[i], true
			}
		}
	}
	return INIFormat{}, false
}

// LookupFormat returns the registered format called name, case-insensitively.
func LookupFormat(name string) (Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	for i := len(formats) - 1; i >= 0; i-- {
		if strings.EqualFold(formats[i].Name(), name) {
			return formats[i], true
		}
	}
	return nil, false
}
