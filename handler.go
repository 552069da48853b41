// handler.go: Parser event contract
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"fmt"
	"strconv"
)

// EmptyComment is reported for a comment line with no text after the mark.
const EmptyComment = "\n "

// ParseState identifies a state of the scanner.
type ParseState int

const (
	StateNewLine ParseState = iota
	StateBeginLine
	StateComment
	StateSectionBegin
	StateSectionEnd
	StateKeyBegin
	StateKeyEnd
	StateValue
	StateEscape
)

// String returns the state name for diagnostics.
func (s ParseState) String() string {
	switch s {
	case StateNewLine:
		return "NEW_LINE"
	case StateBeginLine:
		return "BEGIN_LINE"
	case StateComment:
		return "COMMENT"
	case StateSectionBegin:
		return "SECTION_BEGIN"
	case StateSectionEnd:
		return "SECTION_END"
	case StateKeyBegin:
		return "KEY_BEGIN"
	case StateKeyEnd:
		return "KEY_END"
	case StateValue:
		return "VALUE"
	case StateEscape:
		return "ESCAPE"
	default:
		return "UNKNOWN"
	}
}

// Handler receives the structural events of a parse, in input order.
// Error reports a rejected character; the parser then skips the rest of
// the line and carries on.
type Handler interface {
	Comment(text string)
	Section(name string)
	Key(name string)
	Value(text string)
	Error(state ParseState, char rune, line, col int)
}

// LexicalError describes one rejected character.
type LexicalError struct {
	State ParseState
	Char  rune
	Line  int
	Col   int
}

// Error implements error.
func (e *LexicalError) Error() string {
	return fmt.Sprintf("line %d, column %d: unexpected %s in state %s",
		e.Line, e.Col, strconv.QuoteRune(e.Char), e.State)
}
