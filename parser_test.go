// parser_test.go: Scanner event and recovery tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder captures handler events as strings.
type recorder struct {
	events []string
	errors []LexicalError
}

func (r *recorder) Comment(text string) { r.events = append(r.events, "comment:"+text) }
func (r *recorder) Section(name string) { r.events = append(r.events, "section:"+name) }
func (r *recorder) Key(name string)     { r.events = append(r.events, "key:"+name) }
func (r *recorder) Value(text string)   { r.events = append(r.events, "value:"+text) }
func (r *recorder) Error(state ParseState, char rune, line, col int) {
	r.events = append(r.events, fmt.Sprintf("error:%s:%d:%d", state, line, col))
	r.errors = append(r.errors, LexicalError{State: state, Char: char, Line: line, Col: col})
}

func parseString(t *testing.T, text string) *recorder {
	t.Helper()
	rec := &recorder{}
	if err := Parse(context.Background(), strings.NewReader(text), FlexibleStyle(), rec); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return rec
}

func TestParser_Events(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "document",
			input: "; c\n[s]\nk = v\n",
			want:  []string{"comment: c", "section:s", "key:k", "value:v"},
		},
		{
			name:  "key without spaces",
			input: "k=v\n",
			want:  []string{"key:k", "value:v"},
		},
		{
			name:  "empty value",
			input: "k =\n",
			want:  []string{"key:k", "value:"},
		},
		{
			name:  "leading value whitespace dropped, trailing kept",
			input: "k =   v  \n",
			want:  []string{"key:k", "value:v  "},
		},
		{
			name:  "empty comment",
			input: "#\n",
			want:  []string{"comment:" + EmptyComment},
		},
		{
			name:  "root section",
			input: "[]\n",
			want:  []string{"section:"},
		},
		{
			name:  "nested section",
			input: "[a/b]\n",
			want:  []string{"section:a/b"},
		},
		{
			name:  "indented lines",
			input: "  [s]  \n\tk = v\n",
			want:  []string{"section:s", "key:k", "value:v"},
		},
		{
			name:  "escapes",
			input: `k = \sa\tb\\c\nd\u0041` + "\n",
			want:  []string{"key:k", "value: a\tb\\c\ndA"},
		},
		{
			name:  "long hex escape",
			input: `k = \U000F0000x\U0001F600` + "\n",
			want:  []string{"key:k", "value:\U000F0000x\U0001F600"},
		},
		{
			name:  "blank lines",
			input: "\n\n\nk = v\n\n",
			want:  []string{"key:k", "value:v"},
		},
		{
			name:  "equals inside value",
			input: "url = a=b\n",
			want:  []string{"key:url", "value:a=b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parseString(t, tt.input)
			if diff := cmp.Diff(tt.want, rec.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_ErrorRecovery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "bad key character",
			input: "k!y = v\nok = 1\n",
			want:  []string{"error:KEY_BEGIN:1:2", "key:ok", "value:1"},
		},
		{
			name:  "one error per line",
			input: "[a b c]\n[s]\n",
			want:  []string{"error:SECTION_BEGIN:1:3", "section:s"},
		},
		{
			name:  "key without value",
			input: "lonely\nk = v\n",
			want:  []string{"error:KEY_BEGIN:1:7", "key:k", "value:v"},
		},
		{
			name:  "garbage after section",
			input: "[s] x\nk = v\n",
			want:  []string{"section:s", "error:SECTION_END:1:5", "key:k", "value:v"},
		},
		{
			name:  "unknown escape",
			input: "k = a\\qb\nj = 2\n",
			want:  []string{"key:k", "error:ESCAPE:1:7", "key:j", "value:2"},
		},
		{
			name:  "bad hex escape",
			input: "k = \\u00zz\nj = 2\n",
			want:  []string{"key:k", "error:ESCAPE:1:9", "key:j", "value:2"},
		},
		{
			name:  "long escape out of range",
			input: "k = \\U00110000\nj = 2\n",
			want:  []string{"key:k", "error:ESCAPE:1:14", "key:j", "value:2"},
		},
		{
			name:  "unexpected line start",
			input: "= v\nk = v\n",
			want:  []string{"error:BEGIN_LINE:1:1", "key:k", "value:v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parseString(t, tt.input)
			if diff := cmp.Diff(tt.want, rec.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_LineEndings(t *testing.T) {
	for name, input := range map[string]string{
		"lf":   "[s]\nk = v\nj = w\n",
		"crlf": "[s]\r\nk = v\r\nj = w\r\n",
		"cr":   "[s]\rk = v\rj = w\r",
	} {
		t.Run(name, func(t *testing.T) {
			rec := parseString(t, input)
			want := []string{"section:s", "key:k", "value:v", "key:j", "value:w"}
			if diff := cmp.Diff(want, rec.events); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_CRLFCountsOneLine(t *testing.T) {
	rec := parseString(t, "a = 1\r\nb!\r\n")
	if len(rec.errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(rec.errors))
	}
	if rec.errors[0].Line != 2 {
		t.Errorf("error line = %d, want 2", rec.errors[0].Line)
	}
}

func TestParser_DiscardsUnterminatedLastLine(t *testing.T) {
	rec := parseString(t, "a = 1\nb = 2")
	want := []string{"key:a", "value:1", "key:b"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := Parse(ctx, strings.NewReader("k = v\n"), nil, rec)
	if !IsInterrupted(err) {
		t.Fatalf("expected interrupted error, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("no events expected after cancellation, got %v", rec.events)
	}
}

// interruptingHandler interrupts its parser on the first key.
type interruptingHandler struct {
	recorder
	parser *Parser
}

func (h *interruptingHandler) Key(name string) {
	h.recorder.Key(name)
	h.parser.Interrupt()
}

func TestParser_Interrupt(t *testing.T) {
	h := &interruptingHandler{}
	p := NewParser(strings.NewReader("a = 1\nb = 2\n"), nil, h)
	h.parser = p

	err := p.Parse(context.Background())
	if !IsInterrupted(err) {
		t.Fatalf("expected interrupted error, got %v", err)
	}
	if diff := cmp.Diff([]string{"key:a"}, h.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if p.State() != StateKeyEnd {
		t.Errorf("unexpected state after interrupt: %s", p.State())
	}
}

func TestParser_NilHandler(t *testing.T) {
	err := Parse(context.Background(), strings.NewReader(""), nil, nil)
	if !HasCode(err, ErrCodeInvalidConfig) {
		t.Errorf("expected %s, got %v", ErrCodeInvalidConfig, err)
	}
}

func TestParseState_String(t *testing.T) {
	if got := StateEscape.String(); got != "ESCAPE" {
		t.Errorf("StateEscape.String() = %q", got)
	}
	if got := ParseState(99).String(); got != "UNKNOWN" {
		t.Errorf("ParseState(99).String() = %q", got)
	}
}

func TestLexicalError_Message(t *testing.T) {
	e := &LexicalError{State: StateKeyBegin, Char: '!', Line: 3, Col: 4}
	want := "line 3, column 4: unexpected '!' in state KEY_BEGIN"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
