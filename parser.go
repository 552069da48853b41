// parser.go: Character-level scanner for the tessera text format
//
// The parser consumes one rune at a time and drives a nine-state machine,
// reporting structure to a Handler. A rejected character is reported once,
// the remainder of its line is discarded and scanning resumes on the next
// line, so a single malformed line never affects its neighbours.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/agilira/go-errors"
)

// Parser scans configuration text and emits Handler events.
// A Parser is single use and not safe for concurrent Parse calls;
// Interrupt may be called from any goroutine.
type Parser struct {
	style   *LexicalStyle
	handler Handler
	reader  *bufio.Reader

	state ParseState
	buf   strings.Builder
	line  int
	col   int

	// skipping discards the rest of a line after a lexical error
	skipping bool
	// lastCR is set when a CR ended the previous line, so the LF of a
	// CRLF pair is swallowed
	lastCR bool

	// pending \uXXXX or \UXXXXXXXX escape
	hexLeft  int
	hexValue rune

	interrupted atomic.Bool
}

// NewParser creates a parser reading r through the style's encoding.
// A nil style selects FlexibleStyle.
func NewParser(r io.Reader, style *LexicalStyle, handler Handler) *Parser {
	if style == nil {
		style = FlexibleStyle()
	}
	return &Parser{
		style:   style,
		handler: handler,
		reader:  bufio.NewReader(style.NewReader(r)),
		state:   StateNewLine,
	}
}

// Parse scans r to the end with a fresh Parser.
func Parse(ctx context.Context, r io.Reader, style *LexicalStyle, handler Handler) error {
	return NewParser(r, style, handler).Parse(ctx)
}

// Interrupt asks a running Parse to stop before the next character.
func (p *Parser) Interrupt() {
	p.interrupted.Store(true)
}

// State returns the current scanner state.
func (p *Parser) State() ParseState { return p.state }

// Position returns the line and column of the last consumed character.
func (p *Parser) Position() (line, col int) { return p.line, p.col }

// Parse runs the scanner until end of input. It returns nil at end of
// input, an error coded ErrCodeInterrupted when ctx is done or Interrupt
// was called, and an error coded ErrCodeIOError when reading fails.
// Text after the last line end is discarded.
func (p *Parser) Parse(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.handler == nil {
		return errors.New(ErrCodeInvalidConfig, "parser handler cannot be nil")
	}

	for {
		if err := p.checkInterrupted(ctx); err != nil {
			return err
		}

		r, _, err := p.reader.ReadRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, ErrCodeIOError, "failed to read configuration text").
				WithContext("line", p.line).
				WithContext("column", p.col)
		}

		p.step(r)
	}
}

func (p *Parser) checkInterrupted(ctx context.Context) error {
	if p.interrupted.Load() {
		return errors.New(ErrCodeInterrupted, "parse interrupted").
			WithContext("line", p.line)
	}
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), ErrCodeInterrupted, "parse canceled").
			WithContext("line", p.line)
	default:
		return nil
	}
}

// step consumes one rune.
func (p *Parser) step(r rune) {
	if p.lastCR {
		p.lastCR = false
		if r == '\n' {
			return
		}
	}

	if p.state == StateNewLine {
		p.line++
		p.col = 0
		p.buf.Reset()
		p.state = StateBeginLine
	}
	p.col++

	if p.skipping {
		if p.style.IsLineEnd(r) {
			p.endLine(r)
		}
		return
	}

	switch p.state {
	case StateBeginLine:
		p.beginLine(r)
	case StateComment:
		p.comment(r)
	case StateSectionBegin:
		p.sectionBegin(r)
	case StateSectionEnd:
		p.sectionEnd(r)
	case StateKeyBegin:
		p.keyBegin(r)
	case StateKeyEnd:
		p.keyEnd(r)
	case StateValue:
		p.value(r)
	case StateEscape:
		p.escape(r)
	}
}

func (p *Parser) beginLine(r rune) {
	s := p.style
	switch {
	case s.IsLineEnd(r):
		p.endLine(r)
	case s.IsWhiteSpace(r):
	case s.IsKeyCharacter(r):
		p.buf.WriteRune(r)
		p.state = StateKeyBegin
	case s.IsCommentMark(r):
		p.state = StateComment
	case r == '[':
		p.state = StateSectionBegin
	default:
		p.fail(r)
	}
}

func (p *Parser) comment(r rune) {
	switch {
	case p.style.IsLineEnd(r):
		text := p.buf.String()
		if text == "" {
			text = EmptyComment
		}
		p.handler.Comment(text)
		p.endLine(r)
	case p.style.IsDefined(r):
		p.buf.WriteRune(r)
	default:
		p.fail(r)
	}
}

func (p *Parser) sectionBegin(r rune) {
	switch {
	case p.style.IsSectionCharacter(r):
		p.buf.WriteRune(r)
	case r == ']':
		p.handler.Section(p.buf.String())
		p.buf.Reset()
		p.state = StateSectionEnd
	default:
		p.fail(r)
	}
}

func (p *Parser) sectionEnd(r rune) {
	switch {
	case p.style.IsLineEnd(r):
		p.endLine(r)
	case p.style.IsWhiteSpace(r):
	default:
		p.fail(r)
	}
}

func (p *Parser) keyBegin(r rune) {
	switch {
	case p.style.IsKeyCharacter(r):
		p.buf.WriteRune(r)
	case r == '=' || p.style.IsWhiteSpace(r):
		p.handler.Key(p.buf.String())
		p.buf.Reset()
		if r == '=' {
			p.state = StateValue
		} else {
			p.state = StateKeyEnd
		}
	default:
		p.fail(r)
	}
}

func (p *Parser) keyEnd(r rune) {
	switch {
	case r == '=':
		p.state = StateValue
	case p.style.IsWhiteSpace(r):
	default:
		p.fail(r)
	}
}

func (p *Parser) value(r rune) {
	switch {
	case p.style.IsLineEnd(r):
		p.handler.Value(p.buf.String())
		p.endLine(r)
	case r == '\\':
		p.state = StateEscape
	case p.style.IsWhiteSpace(r):
		if p.buf.Len() > 0 {
			p.buf.WriteRune(r)
		}
	case p.style.IsDefined(r):
		p.buf.WriteRune(r)
	default:
		p.fail(r)
	}
}

func (p *Parser) escape(r rune) {
	if p.hexLeft > 0 {
		d, ok := hexDigit(r)
		if !ok {
			p.fail(r)
			return
		}
		p.hexValue = p.hexValue<<4 | d
		p.hexLeft--
		if p.hexLeft == 0 {
			if !utf8.ValidRune(p.hexValue) {
				p.fail(r)
				return
			}
			p.buf.WriteRune(p.hexValue)
			p.state = StateValue
		}
		return
	}

	switch r {
	case '\\':
		p.buf.WriteByte('\\')
	case 's':
		p.buf.WriteByte(' ')
	case 't':
		p.buf.WriteByte('\t')
	case 'r':
		p.buf.WriteByte('\r')
	case 'n':
		p.buf.WriteByte('\n')
	case 'u':
		p.hexLeft = 4
		p.hexValue = 0
		return
	case 'U':
		p.hexLeft = 8
		p.hexValue = 0
		return
	default:
		// unknown escapes are lexical errors; the rest of the line is dropped
		p.fail(r)
		return
	}
	p.state = StateValue
}

// fail reports r and resynchronizes at the next line.
func (p *Parser) fail(r rune) {
	p.handler.Error(p.state, r, p.line, p.col)
	p.buf.Reset()
	p.hexLeft = 0
	if p.style.IsLineEnd(r) {
		p.endLine(r)
		return
	}
	p.skipping = true
}

func (p *Parser) endLine(r rune) {
	p.skipping = false
	p.state = StateNewLine
	p.lastCR = r == '\r'
}

func hexDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	default:
		return 0, false
	}
}
