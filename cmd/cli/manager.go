// Package cli provides the command-line interface for tessera configuration files.
//
// The CLI is built on Orpheus. Every command works on a file through a
// tessera.RootNode, so reads and writes go through the same lexer, writer
// and audit journal as library users.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/tessera"
	"github.com/spf13/afero"
)

// Version is reported by the info command and --version.
const Version = "1.0.0"

const formatUsage = "File format (auto|ini|yaml)"

// Manager owns the Orpheus application and the settings shared by all
// commands.
type Manager struct {
	app         *orpheus.App
	auditLogger *tessera.AuditLogger
	style       *tessera.LexicalStyle
	fs          afero.Fs
	out         io.Writer
	errOut      io.Writer
}

// NewManager creates a CLI manager with the default style, the OS
// filesystem and no audit journal.
func NewManager() *Manager {
	app := orpheus.New("tessera").
		SetDescription("INI configuration files: inspect, edit, convert and watch").
		SetVersion(Version)

	manager := &Manager{
		app:    app,
		style:  tessera.FlexibleStyle(),
		fs:     afero.NewOsFs(),
		out:    os.Stdout,
		errOut: os.Stderr,
	}

	manager.setupConfigCommands()
	manager.setupWatchCommands()
	manager.setupUtilityCommands()

	return manager
}

// WithAudit records every file operation of the CLI in auditLogger.
func (m *Manager) WithAudit(auditLogger *tessera.AuditLogger) *Manager {
	m.auditLogger = auditLogger
	return m
}

// WithStyle replaces the lexical style used to read and write files.
func (m *Manager) WithStyle(style *tessera.LexicalStyle) *Manager {
	if style != nil {
		m.style = style
	}
	return m
}

// WithFs replaces the filesystem.
func (m *Manager) WithFs(fs afero.Fs) *Manager {
	if fs != nil {
		m.fs = fs
	}
	return m
}

// WithOutput redirects normal and diagnostic output.
func (m *Manager) WithOutput(out, errOut io.Writer) *Manager {
	if out != nil {
		m.out = out
	}
	if errOut != nil {
		m.errOut = errOut
	}
	return m
}

// Run executes the command line args (without the program name).
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupConfigCommands configures the 'config' command group.
func (m *Manager) setupConfigCommands() {
	configCmd := orpheus.NewCommand("config", "Configuration file operations")

	// config get <file> <section> <key>
	getCmd := configCmd.Subcommand("get", "Get a value", m.handleConfigGet)
	getCmd.AddFlag("format", "f", "auto", formatUsage)
	getCmd.AddFlag("default", "d", "", "Value printed when the key is absent")

	// config set <file> <section> <key> <value>
	setCmd := configCmd.Subcommand("set", "Set a value", m.handleConfigSet)
	setCmd.AddFlag("format", "f", "auto", formatUsage)

	// config delete <file> <section> [key]
	deleteCmd := configCmd.Subcommand("delete", "Delete a key, or a whole section", m.handleConfigDelete)
	deleteCmd.AddFlag("format", "f", "auto", formatUsage)

	// config list <file> [--prefix=]
	listCmd := configCmd.Subcommand("list", "List keys as section/key = value", m.handleConfigList)
	listCmd.AddFlag("prefix", "p", "", "Section path prefix filter")
	listCmd.AddFlag("format", "f", "auto", formatUsage)

	// config tree <file>
	treeCmd := configCmd.Subcommand("tree", "Print the section hierarchy", m.handleConfigTree)
	treeCmd.AddFlag("format", "f", "auto", formatUsage)
	treeCmd.AddBoolFlag("values", "v", false, "Show values next to keys")

	// config convert <input> <output> [--from=auto] [--to=auto]
	convertCmd := configCmd.Subcommand("convert", "Convert between ini and yaml", m.handleConfigConvert)
	convertCmd.AddFlag("from", "", "auto", "Input format (auto|ini|yaml)")
	convertCmd.AddFlag("to", "", "auto", "Output format (auto|ini|yaml)")

	// config validate <file>
	configCmd.Subcommand("validate", "Report every lexical error in a file", m.handleConfigValidate)

	// config init <file> [--template=default]
	initCmd := orpheus.NewCommand("init", "Create a new configuration file").
		AddFlag("format", "f", "auto", formatUsage).
		AddFlag("template", "t", "default", "Template type (default|server|minimal)").
		AddBoolFlag("force", "", false, "Overwrite an existing file").
		SetHandler(m.handleConfigInit)
	configCmd.AddSubcommand(initCmd)

	m.app.AddCommand(configCmd)
}

// setupWatchCommands configures 'watch'.
func (m *Manager) setupWatchCommands() {
	watchCmd := orpheus.NewCommand("watch", "Reload a file whenever it changes and print the differences")
	watchCmd.SetHandler(m.handleWatch)
	watchCmd.AddFlag("interval", "i", "1s", "Polling interval")
	watchCmd.AddFlag("format", "f", "auto", formatUsage)
	watchCmd.AddBoolFlag("verbose", "v", false, "Also print structure changes")

	m.app.AddCommand(watchCmd)
}

// setupUtilityCommands configures audit and info.
func (m *Manager) setupUtilityCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit journal inspection")

	auditCmd.Subcommand("stats", "Show journal statistics", m.handleAuditStats)

	queryCmd := auditCmd.Subcommand("query", "Print events of a JSONL journal", m.handleAuditQuery)
	queryCmd.AddFlag("since", "s", "24h", "Time range (e.g., 24h, 7d, 2w)")
	queryCmd.AddFlag("event", "e", "", "Event type filter")
	queryCmd.AddFlag("file", "f", "", "Configuration path filter")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")
	queryCmd.AddBoolFlag("verify", "", false, "Verify event checksums")

	m.app.AddCommand(auditCmd)

	infoCmd := orpheus.NewCommand("info", "Show version, style and format information")
	infoCmd.SetHandler(m.handleInfo)
	infoCmd.AddBoolFlag("verbose", "v", false, "Verbose information")
	m.app.AddCommand(infoCmd)
}
