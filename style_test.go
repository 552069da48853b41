// style_test.go: Lexical style tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestFlexibleStyle_Classes(t *testing.T) {
	s := FlexibleStyle()
	tests := []struct {
		name string
		fn   func(rune) bool
		yes  string
		no   string
	}{
		{"comment", s.IsCommentMark, ";#", "[a= "},
		{"key", s.IsKeyCharacter, "aZ9_è", "/-. =["},
		{"section", s.IsSectionCharacter, "aZ9/\\", "_ ]["},
		{"whitespace", s.IsWhiteSpace, " \t ", "\n\ra"},
		{"line end", s.IsLineEnd, "\n\r", " \t"},
	}
	for _, tt := range tests {
		for _, r := range tt.yes {
			if !tt.fn(r) {
				t.Errorf("%s: %q should match", tt.name, r)
			}
		}
		for _, r := range tt.no {
			if tt.fn(r) {
				t.Errorf("%s: %q should not match", tt.name, r)
			}
		}
	}
	if s.CommentStart() != ';' {
		t.Errorf("CommentStart = %q", s.CommentStart())
	}
}

func TestLexicalStyle_IsDefined(t *testing.T) {
	s := FlexibleStyle()
	for _, r := range []rune{'a', '\t', 'é', '\u200b'} {
		if !s.IsDefined(r) {
			t.Errorf("%U should be defined", r)
		}
	}
	for _, r := range []rune{'\ufffd', '\ue000', 0x0378} {
		if s.IsDefined(r) {
			t.Errorf("%U should not be defined", r)
		}
	}
}

func TestLexicalStyle_WithCommentMarks(t *testing.T) {
	s, err := FlexibleStyle().WithCommentMarks("#!")
	if err != nil {
		t.Fatal(err)
	}
	if s.CommentStart() != '#' || s.IsCommentMark(';') || !s.IsCommentMark('!') {
		t.Errorf("marks = %q", s.CommentMarks())
	}
	if FlexibleStyle().CommentMarks() != ";#" {
		t.Error("With* must not modify the receiver")
	}

	for _, bad := range []string{"", "[", "\\", "a", "1", " ", "_", "#_"} {
		if _, err := FlexibleStyle().WithCommentMarks(bad); !HasCode(err, ErrCodeInvalidStyle) {
			t.Errorf("WithCommentMarks(%q) = %v", bad, err)
		}
	}
}

func TestLexicalStyle_CommentMarkAgainstKeyCharacters(t *testing.T) {
	s, err := FlexibleStyle().WithKeyCharacters("-")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.WithCommentMarks("-"); !HasCode(err, ErrCodeInvalidStyle) {
		t.Errorf("WithCommentMarks(-) with '-' as key character = %v", err)
	}
	withUnderscore, err := s.WithCommentMarks("_")
	if err != nil {
		t.Fatalf("'_' is no longer a key character: %v", err)
	}
	rec := &recorder{}
	if err := Parse(context.Background(), strings.NewReader("_ note\n"), withUnderscore, rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 || rec.events[0] != "comment: note" {
		t.Errorf("events = %v", rec.events)
	}
}

func TestLexicalStyle_WithCharacters(t *testing.T) {
	if _, err := FlexibleStyle().WithKeyCharacters("="); err == nil {
		t.Error("'=' accepted as key character")
	}
	if _, err := FlexibleStyle().WithKeyCharacters(";"); err == nil {
		t.Error("comment mark accepted as key character")
	}
	s, err := FlexibleStyle().WithKeyCharacters("-.")
	if err != nil || !s.IsKeyCharacter('-') || s.IsKeyCharacter('_') {
		t.Errorf("WithKeyCharacters(-.) = %v", err)
	}
	if _, err := FlexibleStyle().WithSectionCharacters("]"); err == nil {
		t.Error("bracket accepted as section character")
	}
	if _, err := FlexibleStyle().WithLineTerminator("\n\n"); !HasCode(err, ErrCodeInvalidStyle) {
		t.Errorf("WithLineTerminator(\\n\\n) = %v", err)
	}
}

func TestLexicalStyle_EncodingRoundTrip(t *testing.T) {
	style, err := BuildStyle(nil, "iso-8859-1", "", "lf")
	if err != nil {
		t.Fatal(err)
	}
	fs := afero.NewMemMapFs()
	root := NewRootNode(Config{File: "/latin1.ini", Fs: fs, Style: style})
	root.Put("k", "café")
	if outcome, err := root.Save(context.Background()); outcome != OutcomeSaved {
		t.Fatalf("Save = %s, %v", outcome, err)
	}

	raw, err := afero.ReadFile(fs, "/latin1.ini")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte("k = caf\xe9\n")) {
		t.Errorf("file is not latin-1 encoded: %q", raw)
	}

	loaded := NewRootNode(Config{File: "/latin1.ini", Fs: fs, Style: style})
	if outcome, _ := loaded.Load(context.Background()); outcome != OutcomeLoaded {
		t.Fatalf("Load = %s", outcome)
	}
	if got := loaded.Get("k", ""); got != "café" {
		t.Errorf("k = %q", got)
	}
}

func TestLexicalStyle_UnknownEncoding(t *testing.T) {
	if _, err := FlexibleStyle().WithEncodingName("klingon-8"); !HasCode(err, ErrCodeInvalidStyle) {
		t.Errorf("WithEncodingName = %v", err)
	}
}
