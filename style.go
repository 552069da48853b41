// style.go: Lexical style policy for the tessera text format
//
// A LexicalStyle classifies single runes (line ends, whitespace, comment
// marks, key and section characters) and carries the conventions used when
// writing: comment start, line terminator and text encoding. Styles are
// immutable; the With* methods return modified copies.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"io"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agilira/go-errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
)

const (
	defaultCommentMarks      = ";#"
	defaultKeyCharacters     = "_"
	defaultSectionCharacters = "/\\"
)

// LexicalStyle defines the character classes and write conventions of one
// dialect of the format. The zero value is not usable; start from
// FlexibleStyle.
type LexicalStyle struct {
	commentMarks      string
	keyCharacters     string
	sectionCharacters string
	lineTerminator    string
	encoding          encoding.Encoding
	encodingName      string
}

// FlexibleStyle returns the default style: ';' and '#' comments, '_' as the
// extra key character, '/' and '\' as extra section characters, the
// platform line separator and UTF-8.
func FlexibleStyle() *LexicalStyle {
	return &LexicalStyle{
		commentMarks:      defaultCommentMarks,
		keyCharacters:     defaultKeyCharacters,
		sectionCharacters: defaultSectionCharacters,
		lineTerminator:    platformLineTerminator(),
		encoding:          xunicode.UTF8,
		encodingName:      "utf-8",
	}
}

func platformLineTerminator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// WithCommentMarks returns a copy using marks as comment characters.
// The first mark is the one written by the Formatter.
func (s *LexicalStyle) WithCommentMarks(marks string) (*LexicalStyle, error) {
	if marks == "" {
		return nil, errors.New(ErrCodeInvalidStyle, "comment marks cannot be empty")
	}
	for _, r := range marks {
		if r == '[' || r == '\\' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(s.keyCharacters, r) {
			return nil, errors.New(ErrCodeInvalidStyle, "comment mark collides with another character class").
				WithContext("mark", string(r))
		}
	}
	c := *s
	c.commentMarks = marks
	return &c, nil
}

// WithKeyCharacters returns a copy accepting extra in key names besides
// letters and digits.
func (s *LexicalStyle) WithKeyCharacters(extra string) (*LexicalStyle, error) {
	if strings.ContainsAny(extra, "=[\\") || strings.ContainsAny(extra, s.commentMarks) {
		return nil, errors.New(ErrCodeInvalidStyle, "key characters cannot contain '=', '[', '\\' or comment marks").
			WithContext("characters", extra)
	}
	c := *s
	c.keyCharacters = extra
	return &c, nil
}

// WithSectionCharacters returns a copy accepting extra in section names
// besides letters and digits.
func (s *LexicalStyle) WithSectionCharacters(extra string) (*LexicalStyle, error) {
	if strings.ContainsAny(extra, "[]") {
		return nil, errors.New(ErrCodeInvalidStyle, "section characters cannot contain brackets").
			WithContext("characters", extra)
	}
	c := *s
	c.sectionCharacters = extra
	return &c, nil
}

// WithLineTerminator returns a copy writing lines terminated by term,
// which must be "\n", "\r\n" or "\r".
func (s *LexicalStyle) WithLineTerminator(term string) (*LexicalStyle, error) {
	switch term {
	case "\n", "\r\n", "\r":
	default:
		return nil, errors.New(ErrCodeInvalidStyle, "unsupported line terminator").
			WithContext("terminator", term)
	}
	c := *s
	c.lineTerminator = term
	return &c, nil
}

// WithEncoding returns a copy reading and writing through enc.
func (s *LexicalStyle) WithEncoding(name string, enc encoding.Encoding) *LexicalStyle {
	c := *s
	c.encoding = enc
	c.encodingName = name
	return &c
}

// WithEncodingName resolves name (e.g. "utf-8", "iso-8859-1",
// "windows-1252") and returns a copy using that encoding.
func (s *LexicalStyle) WithEncodingName(name string) (*LexicalStyle, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidStyle, "unknown text encoding").
			WithContext("encoding", name)
	}
	return s.WithEncoding(strings.ToLower(name), enc), nil
}

// IsLineEnd reports whether r terminates a line.
func (s *LexicalStyle) IsLineEnd(r rune) bool {
	return r == '\n' || r == '\r'
}

// IsWhiteSpace reports whether r is whitespace other than a line end.
func (s *LexicalStyle) IsWhiteSpace(r rune) bool {
	return !s.IsLineEnd(r) && unicode.IsSpace(r)
}

// IsCommentMark reports whether r starts a comment line.
func (s *LexicalStyle) IsCommentMark(r rune) bool {
	return strings.ContainsRune(s.commentMarks, r)
}

// IsKeyCharacter reports whether r may appear in a key name.
func (s *LexicalStyle) IsKeyCharacter(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(s.keyCharacters, r)
}

// IsSectionCharacter reports whether r may appear in a section name.
func (s *LexicalStyle) IsSectionCharacter(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(s.sectionCharacters, r)
}

// IsDefined reports whether r is a valid, assigned, non-private rune.
// Decoding failures surface as utf8.RuneError and are never defined.
func (s *LexicalStyle) IsDefined(r rune) bool {
	return isDefinedRune(r)
}

func isDefinedRune(r rune) bool {
	if r == utf8.RuneError || !utf8.ValidRune(r) {
		return false
	}
	if unicode.Is(unicode.Co, r) || unicode.Is(unicode.Cs, r) {
		return false
	}
	return unicode.IsGraphic(r) || unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}

// CommentStart is the comment mark written by the Formatter.
func (s *LexicalStyle) CommentStart() rune {
	r, _ := utf8.DecodeRuneInString(s.commentMarks)
	return r
}

// CommentMarks returns every rune that starts a comment.
func (s *LexicalStyle) CommentMarks() string { return s.commentMarks }

// LineTerminator is the line ending written by the Formatter.
func (s *LexicalStyle) LineTerminator() string { return s.lineTerminator }

// Encoding returns the text encoding used in both directions.
func (s *LexicalStyle) Encoding() encoding.Encoding { return s.encoding }

// EncodingName returns the name the encoding was configured with.
func (s *LexicalStyle) EncodingName() string { return s.encodingName }

// NewReader decodes r from the style encoding into UTF-8.
func (s *LexicalStyle) NewReader(r io.Reader) io.Reader {
	return s.encoding.NewDecoder().Reader(r)
}

// NewWriter encodes UTF-8 written to w into the style encoding.
func (s *LexicalStyle) NewWriter(w io.Writer) io.Writer {
	return s.encoding.NewEncoder().Writer(w)
}

// validSection reports whether name is a non-empty run of section characters.
func (s *LexicalStyle) validSection(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !s.IsSectionCharacter(r) {
			return false
		}
	}
	return true
}

// validKey reports whether name is a non-empty run of key characters.
func (s *LexicalStyle) validKey(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !s.IsKeyCharacter(r) {
			return false
		}
	}
	return true
}
