// formatter_test.go: Writer and escaping tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sink is an in-memory io.WriteCloser that counts Close calls.
type sink struct {
	bytes.Buffer
	closes   int
	closeErr error
}

func (s *sink) Close() error {
	s.closes++
	return s.closeErr
}

func lfStyle(t *testing.T) *LexicalStyle {
	t.Helper()
	style, err := FlexibleStyle().WithLineTerminator("\n")
	if err != nil {
		t.Fatal(err)
	}
	return style
}

func TestFormatter_Lines(t *testing.T) {
	out := &sink{}
	f := NewFormatter(out, lfStyle(t))

	steps := []func() error{
		func() error { return f.Comment(" generated") },
		func() error { return f.Section("server") },
		func() error { return f.Key("host", "localhost") },
		func() error { return f.Blank() },
		func() error { return f.Comment(EmptyComment) },
		func() error { return f.Comment("a\nb") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	want := "; generated\n[server]\nhost = localhost\n\n;\n;a\n;b\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatter_MultiLineCommentReadsBack(t *testing.T) {
	out := &sink{}
	f := NewFormatter(out, lfStyle(t))
	if err := f.Comment("a\nb"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	if err := Parse(context.Background(), strings.NewReader(out.String()), lfStyle(t), rec); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"comment:a", "comment:b"}, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatter_RejectsInvalidNames(t *testing.T) {
	f := NewFormatter(&sink{}, nil)
	defer f.Close()

	for _, name := range []string{"", "a b", "x]"} {
		if err := f.Section(name); !HasCode(err, ErrCodeInvalidName) {
			t.Errorf("Section(%q) error = %v, want %s", name, err, ErrCodeInvalidName)
		}
	}
	for _, key := range []string{"", "a=b", "a b"} {
		if err := f.Key(key, "v"); !HasCode(err, ErrCodeInvalidName) {
			t.Errorf("Key(%q) error = %v, want %s", key, err, ErrCodeInvalidName)
		}
	}
}

func TestFormatter_CloseOnce(t *testing.T) {
	out := &sink{closeErr: errors.New("disk gone")}
	f := NewFormatter(out, nil)

	first := f.Close()
	second := f.Close()
	if out.closes != 1 {
		t.Errorf("sink closed %d times, want 1", out.closes)
	}
	if !HasCode(first, ErrCodeIOError) || first != second {
		t.Errorf("Close() = %v then %v, want the same I/O error", first, second)
	}
	if err := f.Key("k", "v"); !HasCode(err, ErrCodeClosed) {
		t.Errorf("write after close = %v, want %s", err, ErrCodeClosed)
	}
}

func TestFormatter_LineTerminator(t *testing.T) {
	style, err := FlexibleStyle().WithLineTerminator("\r\n")
	if err != nil {
		t.Fatal(err)
	}
	out := &sink{}
	f := NewFormatter(out, style)
	_ = f.Section("s")
	_ = f.Key("k", "v")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "[s]\r\nk = v\r\n" {
		t.Errorf("output = %q", got)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{" x", `\sx`},
		{"  x", `\s x`},
		{"\tx", `\tx`},
		{"a\\b", `a\\b`},
		{"line1\nline2", `line1\nline2`},
		{"cr\r", `cr\r`},
		{"trailing  ", "trailing  "},
		{"\u00a0x", `\u00A0x`},
		{"\ue000", `\uE000`},
		{"x\U000F0000", `x\U000F0000`},
		{"\U000E0080", `\U000E0080`},
		{"\U0001F600", "\U0001F600"},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`\s x`, "  x"},
		{`a\\b`, `a\b`},
		{`\u0041\u00e9`, "Aé"},
		{`keep\q`, `keep\q`},
		{`short\u00`, `short\u00`},
		{`end\`, `end\`},
		{`\U0001F600!`, "\U0001F600!"},
		{`\UFFFFFFFF`, `\UFFFFFFFF`},
		{`\uD800`, `\uD800`},
	}
	for _, tt := range tests {
		if got := Unescape(tt.in); got != tt.want {
			t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Every value written by the formatter must read back unchanged.
func TestFormatter_ValueRoundTrip(t *testing.T) {
	values := []string{
		"",
		"simple",
		"  leading spaces",
		"\tleading tab",
		"trailing spaces   ",
		"multi\nline\r\nvalue",
		`back\slash`,
		"unicode: héllo wörld ✓",
		"\u00a0nbsp first",
		"private \ue000 use",
		"x\U000F0000",
		"x\U000E0080",
		"\U000F0000",
		"emoji \U0001F600",
		"= equals",
		"; not a comment",
	}

	style := lfStyle(t)
	for _, v := range values {
		out := &sink{}
		f := NewFormatter(out, style)
		if err := f.Key("k", v); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		rec := &recorder{}
		if err := Parse(context.Background(), strings.NewReader(out.String()), style, rec); err != nil {
			t.Fatal(err)
		}
		want := []string{"key:k", "value:" + v}
		if diff := cmp.Diff(want, rec.events); diff != "" {
			t.Errorf("round trip of %q (-want +got):\n%s", v, diff)
		}
		if got := Unescape(Escape(v)); got != v {
			t.Errorf("Unescape(Escape(%q)) = %q", v, got)
		}
	}
}
