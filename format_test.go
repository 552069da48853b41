// format_test.go: Format registry and YAML mirror tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"app.ini", "ini"},
		{"app.CONF", "ini"},
		{"app.cfg", "ini"},
		{"app.config", "ini"},
		{"app.yaml", "yaml"},
		{"dir.d/app.YML", "yaml"},
		{"app", "ini"},
		{"app.json", "ini"},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path).Name(); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestLookupFormat(t *testing.T) {
	if f, ok := LookupFormat("YAML"); !ok || f.Name() != "yaml" {
		t.Errorf("LookupFormat(YAML) = %v, %v", f, ok)
	}
	if _, ok := LookupFormat("toml"); ok {
		t.Error("LookupFormat(toml) must fail")
	}
}

func TestYAMLFormat_RoundTrip(t *testing.T) {
	src := NewNode()
	src.Put("top", "1")
	src.Node("server").Put("host", "localhost")
	src.Node("server").Put("note", "multi\nline")
	src.Node("server/tls").PutBool("enabled", true)
	src.Node("empty")

	out := &sink{}
	if err := (YAMLFormat{}).Encode(context.Background(), out, src, FormatOptions{Header: "generated"}); err != nil {
		t.Fatal(err)
	}
	if out.closes != 1 {
		t.Errorf("Encode must close the sink once, closed %d times", out.closes)
	}
	if !strings.HasPrefix(out.String(), "# generated\n") {
		t.Errorf("missing header comment:\n%s", out.String())
	}

	dst := NewNode()
	if err := (YAMLFormat{}).Decode(context.Background(), strings.NewReader(out.String()), dst, FormatOptions{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(src.Flatten(), dst.Flatten()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLFormat_DecodeScalarsAndNesting(t *testing.T) {
	doc := `
/:
  name: app
server:
  port: 8080
  debug: true
  ratio: 0.5
  nothing:
  nested:
    deep: 1
`
	var reported []error
	n := NewNode()
	err := (YAMLFormat{}).Decode(context.Background(), strings.NewReader(doc), n, FormatOptions{
		Report: func(e error) { reported = append(reported, e) },
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]map[string]string{
		"/":      {"name": "app"},
		"server": {"port": "8080", "debug": "true", "ratio": "0.5", "nothing": ""},
	}
	if diff := cmp.Diff(want, n.Flatten()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if len(reported) != 1 || !HasCode(reported[0], ErrCodeFormat) {
		t.Errorf("expected one nested value report, got %v", reported)
	}
}

func TestYAMLFormat_EmptyAndBroken(t *testing.T) {
	if err := (YAMLFormat{}).Decode(context.Background(), strings.NewReader(""), NewNode(), FormatOptions{}); err != nil {
		t.Errorf("empty document: %v", err)
	}
	err := (YAMLFormat{}).Decode(context.Background(), strings.NewReader("[unclosed"), NewNode(), FormatOptions{})
	if !HasCode(err, ErrCodeFormat) {
		t.Errorf("broken document error = %v, want %s", err, ErrCodeFormat)
	}
}

func TestYAMLFormat_ThroughRootNode(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll("/cfg", 0755)

	root := NewRootNode(Config{File: "/cfg/app.yml", Fs: fs})
	root.Node("db").Put("host", "localhost")
	if outcome, _ := root.Save(context.Background()); outcome != OutcomeSaved {
		t.Fatalf("save outcome = %s", outcome)
	}

	loaded := NewRootNode(Config{File: "/cfg/app.yml", Fs: fs})
	if outcome, _ := loaded.Load(context.Background()); outcome != OutcomeLoaded {
		t.Fatalf("load outcome = %s", outcome)
	}
	if got := loaded.Node("db").Get("host", ""); got != "localhost" {
		t.Errorf("db/host = %q", got)
	}
}

func TestWriteTree_Subtree(t *testing.T) {
	root := NewNode()
	root.Put("outside", "x")
	sub := root.Node("app")
	sub.Put("name", "demo")
	sub.Node("log").Put("level", "info")

	out := &sink{}
	style, _ := FlexibleStyle().WithLineTerminator("\n")
	if err := (INIFormat{}).Encode(context.Background(), out, sub, FormatOptions{Style: style}); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "name = demo\n\n[log]\nlevel = info\n" {
		t.Errorf("subtree output = %q", got)
	}
}

func TestTreeHandler_Comments(t *testing.T) {
	var comments []string
	h := &TreeHandler{Root: NewNode(), OnComment: func(text string) { comments = append(comments, text) }}
	if err := Parse(context.Background(), strings.NewReader("; one\n#\n"), nil, h); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{" one", EmptyComment}, comments); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeHandler_DirectoriesScenario(t *testing.T) {
	const text = "[directories]\nuser = /home/alice\n; comment line\nlast = \\shello\n"

	rec := parseString(t, text)
	wantEvents := []string{
		"section:directories",
		"key:user",
		"value:/home/alice",
		"comment: comment line",
		"key:last",
		"value: hello",
	}
	if diff := cmp.Diff(wantEvents, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	root, _, errs := newMemRoot(t, "/etc/app/dirs.ini", text)
	if outcome, err := root.Load(context.Background()); outcome != OutcomeLoaded || err != nil {
		t.Fatalf("Load = %s, %v", outcome, err)
	}
	if errs.count() != 0 {
		t.Errorf("unexpected problems: %v", errs.errs)
	}
	dirs := root.Find("directories")
	if dirs == nil {
		t.Fatal("directories node not created")
	}
	want := map[string]string{"user": "/home/alice", "last": " hello"}
	if diff := cmp.Diff(want, dirs.Values()); diff != "" {
		t.Errorf("directories values mismatch (-want +got):\n%s", diff)
	}
}
