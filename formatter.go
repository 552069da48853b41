// formatter.go: Writer for the tessera text format
//
// The Formatter is the mirror of the Parser: every call produces lines the
// Parser reads back as the same events. Values are escaped so that
// backslashes, line breaks and leading whitespace survive a round trip.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agilira/go-errors"
)

// Formatter serializes sections, keys and comments. It owns the sink
// passed to NewFormatter and closes it exactly once.
type Formatter struct {
	style  *LexicalStyle
	sink   io.WriteCloser
	out    *bufio.Writer
	closed bool
	err    error
}

// NewFormatter creates a formatter writing to w through the style's
// encoding. A nil style selects FlexibleStyle.
func NewFormatter(w io.WriteCloser, style *LexicalStyle) *Formatter {
	if style == nil {
		style = FlexibleStyle()
	}
	return &Formatter{
		style: style,
		sink:  w,
		out:   bufio.NewWriter(style.NewWriter(w)),
	}
}

// Section writes a "[name]" header line.
func (f *Formatter) Section(name string) error {
	if !f.style.validSection(name) {
		return errors.New(ErrCodeInvalidName, "invalid section name").
			WithContext("section", name)
	}
	return f.writeLine("[" + name + "]")
}

// Key writes a "key = value" line with value escaped.
func (f *Formatter) Key(key, value string) error {
	if !f.style.validKey(key) {
		return errors.New(ErrCodeInvalidName, "invalid key name").
			WithContext("key", key)
	}
	return f.writeLine(key + " = " + Escape(value))
}

// Comment writes text as one comment line per embedded line break.
// EmptyComment produces a bare comment mark.
func (f *Formatter) Comment(text string) error {
	mark := string(f.style.CommentStart())
	if text == EmptyComment {
		return f.writeLine(mark)
	}
	for _, line := range splitLines(text) {
		if err := f.writeLine(mark + line); err != nil {
			return err
		}
	}
	return nil
}

// Blank writes an empty line.
func (f *Formatter) Blank() error {
	return f.writeLine("")
}

// Flush pushes buffered output to the sink.
func (f *Formatter) Flush() error {
	if f.closed {
		return errors.New(ErrCodeClosed, "formatter is closed")
	}
	if err := f.out.Flush(); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to flush configuration text")
	}
	return nil
}

// Close flushes and closes the sink. Further calls return the first result.
func (f *Formatter) Close() error {
	if f.closed {
		return f.err
	}
	f.closed = true

	flushErr := f.out.Flush()
	closeErr := f.sink.Close()
	switch {
	case flushErr != nil:
		f.err = errors.Wrap(flushErr, ErrCodeIOError, "failed to flush configuration text")
	case closeErr != nil:
		f.err = errors.Wrap(closeErr, ErrCodeIOError, "failed to close configuration sink")
	}
	return f.err
}

func (f *Formatter) writeLine(line string) error {
	if f.closed {
		return errors.New(ErrCodeClosed, "formatter is closed")
	}
	if _, err := f.out.WriteString(line); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write configuration text")
	}
	if _, err := f.out.WriteString(f.style.LineTerminator()); err != nil {
		return errors.Wrap(err, ErrCodeIOError, "failed to write configuration text")
	}
	return nil
}

// splitLines splits on "\r\n", "\n" and "\r".
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Escape encodes value for the right-hand side of a key line.
// Backslash, LF and CR become \\, \n and \r. A leading space or tab
// becomes \s or \t, any other leading whitespace becomes \uXXXX, so the
// reader does not drop it as insignificant. Runes the reader would reject
// are written as \uXXXX as well, or \UXXXXXXXX above U+FFFF.
func Escape(value string) string {
	if value == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(value) + 4)

	first, size := utf8.DecodeRuneInString(value)
	rest := value
	if unicode.IsSpace(first) && first != '\n' && first != '\r' {
		switch first {
		case ' ':
			b.WriteString(`\s`)
		case '\t':
			b.WriteString(`\t`)
		default:
			writeHexEscape(&b, first)
		}
		rest = value[size:]
	}

	for _, r := range rest {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if !isDefinedRune(r) {
				writeHexEscape(&b, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func writeHexEscape(b *strings.Builder, r rune) {
	if r > 0xFFFF {
		fmt.Fprintf(b, `\U%08X`, r)
		return
	}
	fmt.Fprintf(b, `\u%04X`, r)
}

// Unescape is the inverse of Escape. Unknown escapes are kept verbatim.
func Unescape(text string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' || i+1 >= len(runes) {
			b.WriteRune(r)
			continue
		}
		i++
		switch runes[i] {
		case '\\':
			b.WriteByte('\\')
		case 's':
			b.WriteByte(' ')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'u', 'U':
			width := 4
			if runes[i] == 'U' {
				width = 8
			}
			if v, ok := parseHex(runes[i+1:], width); ok {
				b.WriteRune(v)
				i += width
				continue
			}
			b.WriteRune('\\')
			b.WriteRune(runes[i])
		default:
			b.WriteRune('\\')
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// parseHex reads width hex digits from the front of runes.
func parseHex(runes []rune, width int) (rune, bool) {
	if len(runes) < width {
		return 0, false
	}
	var v rune
	for _, h := range runes[:width] {
		d, ok := hexDigit(h)
		if !ok {
			return 0, false
		}
		v = v<<4 | d
	}
	return v, utf8.ValidRune(v)
}
