// settings.go: Global CLI settings
//
// Global flags come before the command name. Their defaults are read from
// the [cli] section of ~/.tessera.ini (or $TESSERA_SETTINGS) and from
// TESSERA_* variables:
//
//	[cli]
//	encoding = utf-8
//	comment_marks = ;#
//	line_ending = lf
//	audit_file = ~/.local/state/tessera/audit.jsonl
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"strings"

	"github.com/agilira/tessera"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// SettingsFile is the per-user settings file.
const SettingsFile = "~/.tessera.ini"

// SettingsPath returns the settings file, TESSERA_SETTINGS when set.
func SettingsPath() string {
	return tessera.GetEnvWithDefault("TESSERA_SETTINGS", SettingsFile)
}

// Settings are the global options of the CLI.
type Settings struct {
	AuditFile    string
	Encoding     string
	CommentMarks string
	LineEnding   string
}

// globalFlags take a value each.
var globalFlags = map[string]bool{
	"audit-file":    true,
	"encoding":      true,
	"comment-marks": true,
	"line-ending":   true,
}

// splitGlobalArgs separates the global flags in front of the command from
// the command line itself.
func splitGlobalArgs(args []string) (global, rest []string) {
	i := 0
	for i < len(args) && strings.HasPrefix(args[i], "-") {
		name, _, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if !globalFlags[name] {
			break
		}
		if hasValue {
			i++
		} else {
			i += 2
		}
	}
	if i > len(args) {
		i = len(args)
	}
	return args[:i], args[i:]
}

// LoadSettings reads settingsPath (missing is fine), applies the global
// flags at the front of args and the TESSERA_* variables, and returns the
// settings with the remaining arguments.
func LoadSettings(fs afero.Fs, settingsPath string, args []string) (*Settings, []string, error) {
	global, rest := splitGlobalArgs(args)

	root := tessera.NewRootNode(tessera.Config{
		File:         settingsPath,
		Fs:           fs,
		ErrorHandler: func(error, string) {},
		InfoHandler:  func(string, string) {},
	})
	defer root.Close()
	if _, err := root.Load(context.Background()); err != nil {
		return nil, nil, err
	}

	overlay := tessera.NewFlagOverlay("tessera").
		SetDescription("Global options").
		SetVersion(Version).
		String("audit-file", "cli/audit_file", "", "Audit journal (.db for SQLite, .jsonl for JSON lines)").
		String("encoding", "cli/encoding", "utf-8", "Text encoding of configuration files").
		String("comment-marks", "cli/comment_marks", ";#", "Characters that start a comment").
		String("line-ending", "cli/line_ending", "native", "Line ending written (lf|crlf|cr|native)")
	if err := overlay.Parse(global); err != nil {
		return nil, nil, err
	}
	overlay.Apply(root.Tree())

	cli := root.Node("cli")
	return &Settings{
		AuditFile:    cli.Get("audit_file", ""),
		Encoding:     cli.Get("encoding", ""),
		CommentMarks: cli.Get("comment_marks", ""),
		LineEnding:   cli.Get("line_ending", ""),
	}, rest, nil
}

// Style builds the lexical style described by the settings.
func (s *Settings) Style() (*tessera.LexicalStyle, error) {
	return tessera.BuildStyle(nil, s.Encoding, s.CommentMarks, s.LineEnding)
}

// AuditLogger opens the journal named by AuditFile, or returns nil when
// none is configured.
func (s *Settings) AuditLogger() (*tessera.AuditLogger, error) {
	if s.AuditFile == "" {
		return nil, nil
	}
	path, err := homedir.Expand(s.AuditFile)
	if err != nil {
		return nil, err
	}
	config := tessera.DefaultAuditConfig()
	config.OutputFile = path
	config.Component = "tessera-cli"
	return tessera.NewAuditLogger(config)
}
