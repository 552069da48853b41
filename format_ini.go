// format_ini.go: INI text format binding between Parser, Formatter and Node
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"io"

	"github.com/agilira/go-errors"
)

// INIFormat is the native text format.
type INIFormat struct{}

// Name returns "ini".
func (INIFormat) Name() string { return "ini" }

// Extensions returns the file extensions handled by the text format.
func (INIFormat) Extensions() []string {
	return []string{".ini", ".conf", ".cfg", ".config"}
}

// Decode parses r into the tree rooted at into. Lexical errors are passed
// to opts.Report as *LexicalError and do not stop the parse.
func (INIFormat) Decode(ctx context.Context, r io.Reader, into *Node, opts FormatOptions) error {
	h := &TreeHandler{
		Root:    into,
		OnError: func(e *LexicalError) { opts.report(e) },
	}
	return Parse(ctx, r, opts.style(), h)
}

// Encode writes the tree rooted at from: the header comment, the root
// values, then one section per descendant in name order.
func (INIFormat) Encode(ctx context.Context, w io.WriteCloser, from *Node, opts FormatOptions) (err error) {
	f := NewFormatter(w, opts.style())
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTree(ctx, f, from, opts)
}

// TreeHandler is a Handler that stores parsed values in a tree. Sections
// resolve relative to Root; the empty section "[]" addresses Root itself.
type TreeHandler struct {
	Root *Node

	// OnError, when set, receives every lexical error.
	OnError func(err *LexicalError)

	// OnComment, when set, receives every comment text.
	OnComment func(text string)

	current *Node
	key     string
	haveKey bool
}

func (h *TreeHandler) node() *Node {
	if h.current == nil {
		h.current = h.Root
	}
	return h.current
}

// Comment implements Handler.
func (h *TreeHandler) Comment(text string) {
	if h.OnComment != nil {
		h.OnComment(text)
	}
}

// Section implements Handler.
func (h *TreeHandler) Section(name string) {
	h.current = h.Root.Node(name)
	h.haveKey = false
}

// Key implements Handler.
func (h *TreeHandler) Key(name string) {
	h.key = name
	h.haveKey = true
}

// Value implements Handler.
func (h *TreeHandler) Value(text string) {
	if !h.haveKey {
		return
	}
	h.node().Put(h.key, text)
	h.haveKey = false
}

// Error implements Handler. A key whose line failed gets no value.
func (h *TreeHandler) Error(state ParseState, char rune, line, col int) {
	h.haveKey = false
	if h.OnError != nil {
		h.OnError(&LexicalError{State: state, Char: char, Line: line, Col: col})
	}
}

type section struct {
	name   string
	keys   []string
	values []string
}

// snapshot copies the sections of the tree under the read lock, so the
// writer never holds the lock while doing I/O.
func snapshot(n *Node) []section {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	base := n.pathLocked()
	var out []section
	n.walkLocked(func(node *Node) {
		name := node.sectionName()
		if node != n && base != PathSeparator {
			// relative to n so the output reloads under the same node
			name = node.pathLocked()[len(base)+1:]
		} else if node == n {
			name = ""
		}
		s := section{name: name, keys: sortedKeys(node.values)}
		for _, k := range s.keys {
			s.values = append(s.values, node.values[k])
		}
		out = append(out, s)
	})
	return out
}

// WriteTree drives f over the tree rooted at n. Sections and keys whose
// names the style cannot express are skipped and passed to opts.Report.
// The context is checked between sections.
func WriteTree(ctx context.Context, f *Formatter, n *Node, opts FormatOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if n == nil {
		return errors.New(ErrCodeInvalidConfig, "node cannot be nil")
	}

	if opts.Header != "" {
		if err := f.Comment(opts.Header); err != nil {
			return err
		}
		if err := f.Blank(); err != nil {
			return err
		}
	}

	first := true
	for _, s := range snapshot(n) {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), ErrCodeInterrupted, "save canceled").
				WithContext("section", s.name)
		default:
		}

		if s.name != "" {
			if !first {
				if err := f.Blank(); err != nil {
					return err
				}
			}
			if err := f.Section(s.name); err != nil {
				if HasCode(err, ErrCodeInvalidName) {
					opts.report(err)
					continue
				}
				return err
			}
		}
		for i, k := range s.keys {
			if err := f.Key(k, s.values[i]); err != nil {
				if HasCode(err, ErrCodeInvalidName) {
					opts.report(errors.Wrap(err, ErrCodeInvalidName, "key skipped").
						WithContext("section", s.name))
					continue
				}
				return err
			}
		}
		if s.name != "" || len(s.keys) > 0 {
			first = false
		}
	}
	return f.Flush()
}
