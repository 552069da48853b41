// Test suite for the global CLI settings
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestSplitGlobalArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		global []string
		rest   []string
	}{
		{"none", []string{"config", "list", "a.ini"}, []string{}, []string{"config", "list", "a.ini"}},
		{"equals", []string{"--encoding=latin1", "info"}, []string{"--encoding=latin1"}, []string{"info"}},
		{"separate", []string{"--audit-file", "a.jsonl", "info", "-v"}, []string{"--audit-file", "a.jsonl"}, []string{"info", "-v"}},
		{"command flag", []string{"--version"}, []string{}, []string{"--version"}},
		{"dangling", []string{"--line-ending"}, []string{"--line-ending"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global, rest := splitGlobalArgs(tt.args)
			if diff := cmp.Diff(tt.global, global); diff != "" {
				t.Errorf("global mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.rest, rest); diff != "" {
				t.Errorf("rest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	settings, rest, err := LoadSettings(afero.NewMemMapFs(), "/home/u/.tessera.ini", []string{"info"})
	if err != nil {
		t.Fatal(err)
	}
	want := &Settings{Encoding: "utf-8", CommentMarks: ";#", LineEnding: "native"}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"info"}, rest); diff != "" {
		t.Errorf("rest mismatch (-want +got):\n%s", diff)
	}

	auditLogger, err := settings.AuditLogger()
	if err != nil || auditLogger != nil {
		t.Errorf("AuditLogger() = %v, %v, want no journal", auditLogger, err)
	}
}

func TestLoadSettings_Precedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll("/home/u", 0755)
	_ = afero.WriteFile(fs, "/home/u/.tessera.ini", []byte("[cli]\nencoding = windows-1252\ncomment_marks = #\nline_ending = crlf\n"), 0644)
	t.Setenv("TESSERA_COMMENT_MARKS", "!")

	settings, rest, err := LoadSettings(fs, "/home/u/.tessera.ini", []string{"--line-ending=lf", "config", "list", "x.ini"})
	if err != nil {
		t.Fatal(err)
	}
	want := &Settings{Encoding: "windows-1252", CommentMarks: "!", LineEnding: "lf"}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"config", "list", "x.ini"}, rest); diff != "" {
		t.Errorf("rest mismatch (-want +got):\n%s", diff)
	}

	style, err := settings.Style()
	if err != nil {
		t.Fatal(err)
	}
	if style.EncodingName() != "windows-1252" || style.CommentStart() != '!' || style.LineTerminator() != "\n" {
		t.Errorf("style = %s %q %q", style.EncodingName(), style.CommentMarks(), style.LineTerminator())
	}
}

func TestSettings_InvalidStyle(t *testing.T) {
	s := &Settings{Encoding: "utf-8", CommentMarks: "[", LineEnding: "lf"}
	if _, err := s.Style(); err == nil {
		t.Error("'[' accepted as comment mark")
	}
}

func TestSettings_AuditLogger(t *testing.T) {
	s := &Settings{AuditFile: filepath.Join(t.TempDir(), "cli.jsonl")}
	auditLogger, err := s.AuditLogger()
	if err != nil {
		t.Fatal(err)
	}
	defer auditLogger.Close()
	stats, err := auditLogger.Stats()
	if err != nil || stats.Backend != "jsonl" {
		t.Errorf("Stats() = %+v, %v", stats, err)
	}
}

func TestSettingsPath(t *testing.T) {
	t.Setenv("TESSERA_SETTINGS", "")
	if got := SettingsPath(); got != SettingsFile {
		t.Errorf("SettingsPath() = %q, want %q", got, SettingsFile)
	}
	t.Setenv("TESSERA_SETTINGS", "/etc/tessera/cli.ini")
	if got := SettingsPath(); got != "/etc/tessera/cli.ini" {
		t.Errorf("SettingsPath() = %q", got)
	}
}
